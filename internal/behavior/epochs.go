package behavior

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"trialkit/pkg/trialtypes"
)

// ErrBadBoundary is returned for boundary rows that cannot describe a
// stimulation window.
var ErrBadBoundary = errors.New("invalid stimulation boundary")

// Boundary is the stimulation window of one session, in seconds from the
// start of the recording.
type Boundary struct {
	Session   string
	StimStart float64
	StimEnd   float64
}

// EpochWindows are half-open frame ranges [start, end) for each epoch.
type EpochWindows struct {
	Baseline [2]int
	Stim     [2]int
	PostStim [2]int
}

// Windows converts the boundary to frame windows. Baseline and post-stim
// windows span epochFrames before the start and after the end.
func (b Boundary) Windows(sampleRate float64, epochFrames int) EpochWindows {
	start := int(math.Round(b.StimStart * sampleRate))
	end := int(math.Round(b.StimEnd * sampleRate))
	return EpochWindows{
		Baseline: [2]int{start - epochFrames, start},
		Stim:     [2]int{start, end},
		PostStim: [2]int{end, end + epochFrames},
	}
}

// Classify returns the single epoch containing frame, or EpochNone.
func (w EpochWindows) Classify(frame int) trialtypes.Epoch {
	switch {
	case inWindow(frame, w.Baseline):
		return trialtypes.EpochBaseline
	case inWindow(frame, w.Stim):
		return trialtypes.EpochStim
	case inWindow(frame, w.PostStim):
		return trialtypes.EpochPostStim
	default:
		return trialtypes.EpochNone
	}
}

func inWindow(frame int, w [2]int) bool {
	return frame >= w[0] && frame < w[1]
}

// BoundaryTable maps session keys to their stimulation boundaries.
type BoundaryTable map[string]Boundary

// Lookup returns the boundary for session.
func (t BoundaryTable) Lookup(session string) (Boundary, bool) {
	b, ok := t[session]
	return b, ok
}

// LoadBoundaries reads a boundary table file. An empty path yields an empty table.
func LoadBoundaries(path string) (BoundaryTable, error) {
	if path == "" {
		return BoundaryTable{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open boundary table: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadBoundaries(f)
}

// ReadBoundaries parses a CSV table with a header row naming at least the
// columns session, stim_start_s and stim_end_s, in any order.
func ReadBoundaries(r io.Reader) (BoundaryTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return BoundaryTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"session", "stim_start_s", "stim_end_s"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("boundary table missing column %q", required)
		}
	}

	table := BoundaryTable{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("boundary table line %d: %w", line, err)
		}
		b, err := parseBoundary(record, cols)
		if err != nil {
			return nil, fmt.Errorf("boundary table line %d: %w", line, err)
		}
		if _, dup := table[b.Session]; dup {
			return nil, fmt.Errorf("boundary table line %d: duplicate session %q: %w", line, b.Session, ErrBadBoundary)
		}
		table[b.Session] = b
	}
	return table, nil
}

func parseBoundary(record []string, cols map[string]int) (Boundary, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	b := Boundary{Session: field("session")}
	if b.Session == "" {
		return b, fmt.Errorf("empty session: %w", ErrBadBoundary)
	}
	var err error
	if b.StimStart, err = strconv.ParseFloat(field("stim_start_s"), 64); err != nil {
		return b, fmt.Errorf("stim_start_s: %w", ErrBadBoundary)
	}
	if b.StimEnd, err = strconv.ParseFloat(field("stim_end_s"), 64); err != nil {
		return b, fmt.Errorf("stim_end_s: %w", ErrBadBoundary)
	}
	if b.StimEnd < b.StimStart {
		return b, fmt.Errorf("stim ends at %v before it starts at %v: %w", b.StimEnd, b.StimStart, ErrBadBoundary)
	}
	return b, nil
}
