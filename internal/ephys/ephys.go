// Package ephys measures optically evoked currents recorded per cell.
//
// Every cell directory holds up to one trace file per stimulus condition,
// named after the condition (for example 470nm_-70mV.csv). For each trace the
// baseline is the mean over a fixed sample window and the peak is the extremum
// over a second window: the minimum for inward currents, the maximum otherwise.
package ephys

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trialkit/internal/config"
	"trialkit/internal/logger"
	"trialkit/internal/signal"
	"trialkit/internal/table"
	"trialkit/pkg/trialtypes"
)

const currentChannel = "current"

// Analyzer computes per-condition amplitudes for recorded cells.
type Analyzer struct {
	cfg config.EphysConfig
	log *log.Logger
}

// NewAnalyzer creates an analyzer for the given settings.
func NewAnalyzer(cfg config.EphysConfig) *Analyzer {
	return &Analyzer{cfg: cfg, log: logger.NewStyledLogger("Ephys")}
}

// TraceFileName is the file name holding the trace for a condition.
func TraceFileName(c trialtypes.Condition) string {
	return c.String() + ".csv"
}

// LoadTrace reads the current column of a trace file.
func (a *Analyzer) LoadTrace(path string) ([]float64, error) {
	tbl, err := table.ReadFile(path, table.Layout{
		HeaderRows: a.cfg.HeaderRows,
		Columns:    map[string]int{currentChannel: a.cfg.Column},
	})
	if err != nil {
		return nil, err
	}
	return tbl.Column(currentChannel), nil
}

// Measure computes baseline, peak, amplitude and the trace snippet.
func (a *Analyzer) Measure(trace []float64, c trialtypes.Condition) trialtypes.ConditionResult {
	res := trialtypes.ConditionResult{Present: true}
	res.Baseline = windowMean(trace, a.cfg.BaselineStart, a.cfg.BaselineEnd)
	res.PeakIndex, res.Peak = windowExtremum(trace, a.cfg.PeakStart, a.cfg.PeakEnd, c.Inward())
	res.Amplitude = res.Peak - res.Baseline
	res.Trace, _ = signal.Window(trace, a.cfg.SnippetStart, a.cfg.SnippetEnd-a.cfg.SnippetStart)
	return res
}

// Missing returns the placeholder result for a condition without a trace.
func (a *Analyzer) Missing() trialtypes.ConditionResult {
	return trialtypes.ConditionResult{
		Baseline:  math.NaN(),
		Peak:      math.NaN(),
		Amplitude: math.NaN(),
		PeakIndex: -1,
		Trace:     signal.NaNs(a.cfg.SnippetEnd - a.cfg.SnippetStart),
	}
}

// AnalyzeCell measures every configured condition found in dir. Missing
// trace files are skipped and reported as not present.
func (a *Analyzer) AnalyzeCell(dir string) (*trialtypes.EphysRecord, error) {
	rec := &trialtypes.EphysRecord{
		Cell:    filepath.Base(dir),
		Results: make(map[trialtypes.Condition]trialtypes.ConditionResult, len(a.cfg.Conditions)),
	}
	for _, c := range a.cfg.Conditions {
		path := filepath.Join(dir, TraceFileName(c))
		trace, err := a.LoadTrace(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.FileSkipped(path, "missing")
				rec.Results[c] = a.Missing()
				continue
			}
			return nil, fmt.Errorf("cell %s condition %s: %w", rec.Cell, c, err)
		}
		rec.Results[c] = a.Measure(trace, c)
	}
	return rec, nil
}

// AnalyzeRoot analyzes every cell directory under root in lexical order.
// Directories without any trace file are left out; cells that fail to load
// are logged and skipped.
func (a *Analyzer) AnalyzeRoot(root string) ([]*trialtypes.EphysRecord, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list cells in %s: %w", root, err)
	}

	records := []*trialtypes.EphysRecord{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := a.AnalyzeCell(filepath.Join(root, entry.Name()))
		if err != nil {
			a.log.Error("Failed to analyze cell", "cell", entry.Name(), "error", err)
			continue
		}
		if rec.PresentCount() == 0 {
			logger.FileSkipped(entry.Name(), "no traces")
			continue
		}
		a.log.Info("Cell analyzed", "cell", rec.Cell, "conditions", rec.PresentCount())
		records = append(records, rec)
	}
	return records, nil
}

// finiteIn returns the finite samples of trace[start:end] (clipped to the
// trace) together with their absolute indices.
func finiteIn(trace []float64, start, end int) (values []float64, index []int) {
	if start < 0 {
		start = 0
	}
	if end > len(trace) {
		end = len(trace)
	}
	for i := start; i < end; i++ {
		if math.IsNaN(trace[i]) || math.IsInf(trace[i], 0) {
			continue
		}
		values = append(values, trace[i])
		index = append(index, i)
	}
	return values, index
}

func windowMean(trace []float64, start, end int) float64 {
	values, _ := finiteIn(trace, start, end)
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func windowExtremum(trace []float64, start, end int, minimum bool) (int, float64) {
	values, index := finiteIn(trace, start, end)
	if len(values) == 0 {
		return -1, math.NaN()
	}
	var i int
	if minimum {
		i = floats.MinIdx(values)
	} else {
		i = floats.MaxIdx(values)
	}
	return index[i], values[i]
}
