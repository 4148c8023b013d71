// Package table loads flat numeric CSV files into named float64 columns.
// Columns are addressed by fixed position; empty or unparseable cells become NaN.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrNoRows is returned when a file has no data rows after the header.
	ErrNoRows = errors.New("table has no data rows")
	// ErrColumnRange is returned when a requested column position is beyond the row width.
	ErrColumnRange = errors.New("column position out of range")
)

// Layout describes where the named channels live in a CSV file.
type Layout struct {
	HeaderRows int            // rows skipped before data
	Columns    map[string]int // channel name -> zero-based column position
	Comma      rune           // field separator, ',' when zero
}

// Table is a set of equally long numeric columns.
type Table struct {
	columns map[string][]float64
	rows    int
}

// ReadFile opens path and reads it with the given layout.
func ReadFile(path string, layout Layout) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f, layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV data from r with the given layout.
func Read(r io.Reader, layout Layout) (*Table, error) {
	if len(layout.Columns) == 0 {
		return nil, fmt.Errorf("layout has no columns")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	if layout.Comma != 0 {
		reader.Comma = layout.Comma
	}

	maxCol := 0
	for name, pos := range layout.Columns {
		if pos < 0 {
			return nil, fmt.Errorf("column %s: %w", name, ErrColumnRange)
		}
		if pos > maxCol {
			maxCol = pos
		}
	}

	t := &Table{columns: make(map[string][]float64, len(layout.Columns))}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if line <= layout.HeaderRows {
			continue
		}
		if t.rows == 0 && len(record) <= maxCol {
			return nil, fmt.Errorf("row has %d fields, need column %d: %w", len(record), maxCol, ErrColumnRange)
		}
		for name, pos := range layout.Columns {
			v := math.NaN()
			if pos < len(record) {
				v = ParseCell(record[pos])
			}
			t.columns[name] = append(t.columns[name], v)
		}
		t.rows++
	}

	if t.rows == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// ParseCell converts a single CSV cell to float64, returning NaN when the cell
// is empty or not numeric. Boolean spellings map to 0 and 1.
func ParseCell(cell string) float64 {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "":
		return math.NaN()
	case "true":
		return 1
	case "false":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// New builds a table from existing columns; all columns must share one length.
func New(columns map[string][]float64) (*Table, error) {
	t := &Table{columns: make(map[string][]float64, len(columns)), rows: -1}
	for name, col := range columns {
		if t.rows >= 0 && len(col) != t.rows {
			return nil, fmt.Errorf("column %s has %d rows, want %d", name, len(col), t.rows)
		}
		t.rows = len(col)
		t.columns[name] = col
	}
	if t.rows <= 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

// Rows returns the number of data rows.
func (t *Table) Rows() int {
	return t.rows
}

// Column returns the named column, or nil when it does not exist.
func (t *Table) Column(name string) []float64 {
	return t.columns[name]
}

// Names returns the column names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.columns))
	for name := range t.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Head truncates every column to at most n rows and returns the table.
func (t *Table) Head(n int) *Table {
	if n < 0 || n >= t.rows {
		return t
	}
	for name, col := range t.columns {
		t.columns[name] = col[:n]
	}
	t.rows = n
	return t
}
