// Package export writes analysis results to a directory as CSV tables and a
// YAML run summary.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"trialkit/pkg/trialtypes"
)

// Exporter writes files below a single output directory.
type Exporter struct {
	dir    string
	create func(path string) (io.WriteCloser, error)
}

// NewExporter creates an exporter rooted at dir.
func NewExporter(dir string) *Exporter {
	return &Exporter{
		dir: dir,
		create: func(path string) (io.WriteCloser, error) {
			return os.Create(path)
		},
	}
}

// Dir returns the output directory.
func (e *Exporter) Dir() string {
	return e.dir
}

// TrialsFileName returns the per-trial table name of a session.
func TrialsFileName(session string) string {
	return session + "_trials.csv"
}

// TraceFileName returns the trace matrix name of a session channel.
func TraceFileName(session, channel string) string {
	return fmt.Sprintf("%s_%s.csv", session, channel)
}

// EphysFileName returns the condition table name of a cell.
func EphysFileName(cell string) string {
	return cell + "_ephys.csv"
}

var trialHeader = []string{
	"trial", "raw_index", "onset_index", "shift", "threshold",
	"rewarded", "reward_index", "epoch", "in_range",
}

// WriteSessionTrials writes one row per trial of the session.
func (e *Exporter) WriteSessionTrials(rec *trialtypes.SessionRecord) (string, error) {
	rows := make([][]string, 0, len(rec.Trials))
	for _, t := range rec.Trials {
		rows = append(rows, []string{
			strconv.Itoa(t.Number),
			strconv.Itoa(t.RawIndex),
			strconv.Itoa(t.OnsetIndex),
			strconv.Itoa(t.Shift),
			formatFloat(t.Threshold),
			strconv.FormatBool(t.Rewarded),
			strconv.Itoa(t.RewardIndex),
			t.Epoch.String(),
			strconv.FormatBool(t.InRange),
		})
	}
	return e.writeCSV(TrialsFileName(rec.Session), trialHeader, rows)
}

// WriteSessionTraces writes the position, licking and reward trace matrices
// of a session, one row per trial. The header is the sample offset relative
// to the onset.
func (e *Exporter) WriteSessionTraces(rec *trialtypes.SessionRecord) ([]string, error) {
	channels := []struct {
		name string
		pick func(trialtypes.TraceSet) []float64
	}{
		{"position", func(ts trialtypes.TraceSet) []float64 { return ts.Position }},
		{"licking", func(ts trialtypes.TraceSet) []float64 { return ts.Licking }},
		{"reward", func(ts trialtypes.TraceSet) []float64 { return ts.Reward }},
	}

	width := 0
	for _, ts := range rec.Traces {
		if len(ts.Position) > width {
			width = len(ts.Position)
		}
	}
	half := width / 2
	header := make([]string, 0, width+1)
	header = append(header, "trial")
	for i := 0; i < width; i++ {
		header = append(header, strconv.Itoa(i-half))
	}

	var paths []string
	for _, ch := range channels {
		rows := make([][]string, 0, len(rec.Traces))
		for i, ts := range rec.Traces {
			number := i + 1
			if i < len(rec.Trials) {
				number = rec.Trials[i].Number
			}
			rows = append(rows, traceRow(number, ch.pick(ts)))
		}
		path, err := e.writeCSV(TraceFileName(rec.Session, ch.name), header, rows)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

var ephysHeader = []string{
	"condition", "wavelength_nm", "holding_mv", "present",
	"baseline", "peak", "amplitude", "peak_index",
}

// WriteEphysRecord writes one row per condition of a cell.
func (e *Exporter) WriteEphysRecord(rec *trialtypes.EphysRecord) (string, error) {
	conds := rec.Conditions()
	rows := make([][]string, 0, len(conds))
	for _, c := range conds {
		res := rec.Results[c]
		rows = append(rows, []string{
			c.String(),
			strconv.Itoa(c.WavelengthNM),
			strconv.Itoa(c.HoldingMV),
			strconv.FormatBool(res.Present),
			formatFloat(res.Baseline),
			formatFloat(res.Peak),
			formatFloat(res.Amplitude),
			strconv.Itoa(res.PeakIndex),
		})
	}
	return e.writeCSV(EphysFileName(rec.Cell), ephysHeader, rows)
}

func traceRow(number int, values []float64) []string {
	row := make([]string, 0, len(values)+1)
	row = append(row, strconv.Itoa(number))
	for _, v := range values {
		row = append(row, formatFloat(v))
	}
	return row
}

// formatFloat renders NaN and infinities as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (e *Exporter) writeCSV(name string, header []string, rows [][]string) (string, error) {
	return e.writeFile(name, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", name, err)
		}
		if err := writer.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		return nil
	})
}

// writeFile creates name in the export directory and fills it with write.
// A failed close is reported like a failed write.
func (e *Exporter) writeFile(name string, write func(w io.Writer) error) (path string, err error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path = filepath.Join(e.dir, name)
	file, err := e.create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			path, err = "", fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()

	if err := write(file); err != nil {
		return "", err
	}
	return path, nil
}
