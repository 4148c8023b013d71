package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/montanaflynn/stats"
	"gopkg.in/yaml.v3"

	"trialkit/internal/logger"
	"trialkit/internal/version"
	"trialkit/pkg/trialtypes"
)

// SummaryFileName is the name of the run summary file.
const SummaryFileName = "summary.yaml"

// ErrIncompatibleSummary is returned for summaries written by an
// incompatible trialkit version.
var ErrIncompatibleSummary = errors.New("incompatible summary version")

// RunSummary is the YAML document written at the end of a run.
type RunSummary struct {
	Version    string           `yaml:"trialkit_version"`
	RunID      string           `yaml:"run_id"`
	Kind       string           `yaml:"kind"`
	StartedAt  time.Time        `yaml:"started_at"`
	ConfigFile string           `yaml:"config_file,omitempty"`
	Sessions   []SessionSummary `yaml:"sessions,omitempty"`
	Cells      []CellSummary    `yaml:"cells,omitempty"`
	Totals     Totals           `yaml:"totals"`
}

// SessionSummary is the per-session part of a RunSummary.
type SessionSummary struct {
	Session        string                 `yaml:"session"`
	Frames         int                    `yaml:"frames"`
	Trials         int                    `yaml:"trials"`
	RewardedTrials int                    `yaml:"rewarded_trials"`
	RewardEvents   int                    `yaml:"reward_events"`
	MeanShift      float64                `yaml:"mean_shift"`
	MedianShift    float64                `yaml:"median_shift"`
	Epochs         map[string]EpochTotals `yaml:"epochs,omitempty"`
}

// EpochTotals mirrors trialtypes.EpochCounts with a success rate.
type EpochTotals struct {
	Trials   int     `yaml:"trials"`
	Rewarded int     `yaml:"rewarded"`
	Rate     float64 `yaml:"rate"`
}

// CellSummary is the per-cell part of a RunSummary. Missing conditions are
// left out of Amplitudes.
type CellSummary struct {
	Cell       string             `yaml:"cell"`
	Present    int                `yaml:"present"`
	Amplitudes map[string]float64 `yaml:"amplitudes,omitempty"`
}

// Totals aggregates over every session or cell of a run.
type Totals struct {
	Records          int     `yaml:"records"`
	Trials           int     `yaml:"trials,omitempty"`
	RewardedTrials   int     `yaml:"rewarded_trials,omitempty"`
	MeanSessionShift float64 `yaml:"mean_session_shift,omitempty"`
}

// NewBehaviorSummary builds a RunSummary from session records.
func NewBehaviorSummary(runID string, startedAt time.Time, configFile string, records []*trialtypes.SessionRecord) RunSummary {
	summary := RunSummary{
		Version:    version.GetVersion(),
		RunID:      runID,
		Kind:       "behavior",
		StartedAt:  startedAt.UTC(),
		ConfigFile: configFile,
	}

	var shifts stats.Float64Data
	for _, rec := range records {
		s := SessionSummary{
			Session:        rec.Session,
			Frames:         rec.Frames,
			Trials:         rec.TrialCount(),
			RewardedTrials: rec.RewardedTrials,
			RewardEvents:   rec.RewardEvents,
			MeanShift:      rec.MeanShift,
			MedianShift:    rec.MedianShift,
		}
		if rec.HasBoundaries {
			s.Epochs = make(map[string]EpochTotals, len(trialtypes.Epochs))
			for _, e := range trialtypes.Epochs {
				c := rec.EpochCounts[e]
				s.Epochs[e.String()] = EpochTotals{Trials: c.Trials, Rewarded: c.Rewarded, Rate: rate(c.Rewarded, c.Trials)}
			}
		}
		summary.Sessions = append(summary.Sessions, s)
		summary.Totals.Trials += s.Trials
		summary.Totals.RewardedTrials += s.RewardedTrials
		if s.Trials > 0 {
			shifts = append(shifts, rec.MeanShift)
		}
	}

	summary.Totals.Records = len(records)
	if len(shifts) > 0 {
		summary.Totals.MeanSessionShift, _ = shifts.Mean()
	}
	return summary
}

// NewEphysSummary builds a RunSummary from ephys records.
func NewEphysSummary(runID string, startedAt time.Time, configFile string, records []*trialtypes.EphysRecord) RunSummary {
	summary := RunSummary{
		Version:    version.GetVersion(),
		RunID:      runID,
		Kind:       "ephys",
		StartedAt:  startedAt.UTC(),
		ConfigFile: configFile,
	}

	for _, rec := range records {
		c := CellSummary{Cell: rec.Cell, Present: rec.PresentCount(), Amplitudes: map[string]float64{}}
		for _, cond := range rec.Conditions() {
			if res := rec.Results[cond]; res.Present {
				c.Amplitudes[cond.String()] = res.Amplitude
			}
		}
		summary.Cells = append(summary.Cells, c)
	}
	summary.Totals.Records = len(records)
	return summary
}

// WriteSummary writes the summary as summary.yaml.
func (e *Exporter) WriteSummary(summary RunSummary) (string, error) {
	return e.writeFile(SummaryFileName, func(w io.Writer) error {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(summary); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		return nil
	})
}

// ReadSummary loads a summary written by WriteSummary and checks that its
// version is readable by this build.
func ReadSummary(path string) (RunSummary, error) {
	var summary RunSummary
	data, err := os.ReadFile(path)
	if err != nil {
		return summary, err
	}
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	ok, err := version.Compatible(summary.Version)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrIncompatibleSummary, err)
	}
	if !ok {
		return summary, fmt.Errorf("%w: written by %s, running %s", ErrIncompatibleSummary, summary.Version, version.GetVersion())
	}
	if cmp, err := version.CompareVersions(summary.Version, version.GetVersion()); err == nil && cmp > 0 {
		logger.Warn("Summary written by a newer trialkit", "file", path, "written", summary.Version, "running", version.GetVersion())
	}
	return summary, nil
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
