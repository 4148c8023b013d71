package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"trialkit/pkg/trialtypes"
)

// Run kinds.
const (
	KindBehavior = "behavior"
	KindEphys    = "ephys"
)

// Run is one invocation of an analysis pipeline.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	ConfigFile string    `json:"config_file" yaml:"config_file"`
	Inputs     int       `json:"inputs" yaml:"inputs"`
	Records    int       `json:"records" yaml:"records"`
}

// runRow is the database form of Run.
type runRow struct {
	ID         string `db:"id"`
	Kind       string `db:"kind"`
	StartedAt  string `db:"started_at"`
	ConfigFile string `db:"config_file"`
	Inputs     int    `db:"inputs"`
	Records    int    `db:"records"`
}

func (r runRow) toRun() (Run, error) {
	started, err := time.Parse(timestampFormat, r.StartedAt)
	if err != nil {
		return Run{}, err
	}
	return Run{
		ID:         r.ID,
		Kind:       r.Kind,
		StartedAt:  started,
		ConfigFile: r.ConfigFile,
		Inputs:     r.Inputs,
		Records:    r.Records,
	}, nil
}

// SessionRow is a stored session summary.
type SessionRow struct {
	RunID            string  `db:"run_id" json:"run_id"`
	Session          string  `db:"session" json:"session"`
	Path             string  `db:"path" json:"path"`
	Frames           int     `db:"frames" json:"frames"`
	Trials           int     `db:"trials" json:"trials"`
	RewardEvents     int     `db:"reward_events" json:"reward_events"`
	RewardedTrials   int     `db:"rewarded_trials" json:"rewarded_trials"`
	BaselineTrials   int     `db:"baseline_trials" json:"baseline_trials"`
	BaselineRewarded int     `db:"baseline_rewarded" json:"baseline_rewarded"`
	StimTrials       int     `db:"stim_trials" json:"stim_trials"`
	StimRewarded     int     `db:"stim_rewarded" json:"stim_rewarded"`
	PostStimTrials   int     `db:"post_stim_trials" json:"post_stim_trials"`
	PostStimRewarded int     `db:"post_stim_rewarded" json:"post_stim_rewarded"`
	MeanShift        float64 `db:"mean_shift" json:"mean_shift"`
	MedianShift      float64 `db:"median_shift" json:"median_shift"`
	HasBoundaries    bool    `db:"has_boundaries" json:"has_boundaries"`
}

func newSessionRow(runID string, rec *trialtypes.SessionRecord) SessionRow {
	counts := func(e trialtypes.Epoch) trialtypes.EpochCounts {
		return rec.EpochCounts[e]
	}
	return SessionRow{
		RunID:            runID,
		Session:          rec.Session,
		Path:             rec.Path,
		Frames:           rec.Frames,
		Trials:           rec.TrialCount(),
		RewardEvents:     rec.RewardEvents,
		RewardedTrials:   rec.RewardedTrials,
		BaselineTrials:   counts(trialtypes.EpochBaseline).Trials,
		BaselineRewarded: counts(trialtypes.EpochBaseline).Rewarded,
		StimTrials:       counts(trialtypes.EpochStim).Trials,
		StimRewarded:     counts(trialtypes.EpochStim).Rewarded,
		PostStimTrials:   counts(trialtypes.EpochPostStim).Trials,
		PostStimRewarded: counts(trialtypes.EpochPostStim).Rewarded,
		MeanShift:        finiteOrZero(rec.MeanShift),
		MedianShift:      finiteOrZero(rec.MedianShift),
		HasBoundaries:    rec.HasBoundaries,
	}
}

// TrialRow is a stored trial.
type TrialRow struct {
	RunID       string  `db:"run_id" json:"run_id"`
	Session     string  `db:"session" json:"session"`
	Number      int     `db:"number" json:"number"`
	RawIndex    int     `db:"raw_index" json:"raw_index"`
	OnsetIndex  int     `db:"onset_index" json:"onset_index"`
	Shift       int     `db:"shift" json:"shift"`
	Threshold   float64 `db:"threshold" json:"threshold"`
	Rewarded    bool    `db:"rewarded" json:"rewarded"`
	RewardIndex int     `db:"reward_index" json:"reward_index"`
	Epoch       string  `db:"epoch" json:"epoch"`
	InRange     bool    `db:"in_range" json:"in_range"`
}

// Trial converts the row back into a trialtypes.Trial.
func (r TrialRow) Trial() (trialtypes.Trial, error) {
	epoch, err := trialtypes.ParseEpoch(r.Epoch)
	if err != nil {
		return trialtypes.Trial{}, err
	}
	return trialtypes.Trial{
		Number:      r.Number,
		RawIndex:    r.RawIndex,
		OnsetIndex:  r.OnsetIndex,
		Shift:       r.Shift,
		Threshold:   r.Threshold,
		Rewarded:    r.Rewarded,
		RewardIndex: r.RewardIndex,
		Epoch:       epoch,
		InRange:     r.InRange,
	}, nil
}

func newTrialRow(runID, session string, t trialtypes.Trial) TrialRow {
	return TrialRow{
		RunID:       runID,
		Session:     session,
		Number:      t.Number,
		RawIndex:    t.RawIndex,
		OnsetIndex:  t.OnsetIndex,
		Shift:       t.Shift,
		Threshold:   t.Threshold,
		Rewarded:    t.Rewarded,
		RewardIndex: t.RewardIndex,
		Epoch:       t.Epoch.String(),
		InRange:     t.InRange,
	}
}

// EphysRow is a stored condition measurement. Missing values are NULL.
type EphysRow struct {
	RunID        string          `db:"run_id" json:"run_id"`
	Cell         string          `db:"cell" json:"cell"`
	WavelengthNM int             `db:"wavelength_nm" json:"wavelength_nm"`
	HoldingMV    int             `db:"holding_mv" json:"holding_mv"`
	Present      bool            `db:"present" json:"present"`
	Baseline     sql.NullFloat64 `db:"baseline" json:"-"`
	Peak         sql.NullFloat64 `db:"peak" json:"-"`
	Amplitude    sql.NullFloat64 `db:"amplitude" json:"-"`
	PeakIndex    int             `db:"peak_index" json:"peak_index"`
}

// Condition returns the stimulus condition of the row.
func (r EphysRow) Condition() trialtypes.Condition {
	return trialtypes.Condition{WavelengthNM: r.WavelengthNM, HoldingMV: r.HoldingMV}
}

// Result converts the row into a ConditionResult with NaN for NULL values.
func (r EphysRow) Result() trialtypes.ConditionResult {
	return trialtypes.ConditionResult{
		Present:   r.Present,
		Baseline:  nullToNaN(r.Baseline),
		Peak:      nullToNaN(r.Peak),
		Amplitude: nullToNaN(r.Amplitude),
		PeakIndex: r.PeakIndex,
	}
}

func newEphysRow(runID, cell string, c trialtypes.Condition, res trialtypes.ConditionResult) EphysRow {
	return EphysRow{
		RunID:        runID,
		Cell:         cell,
		WavelengthNM: c.WavelengthNM,
		HoldingMV:    c.HoldingMV,
		Present:      res.Present,
		Baseline:     nanToNull(res.Baseline),
		Peak:         nanToNull(res.Peak),
		Amplitude:    nanToNull(res.Amplitude),
		PeakIndex:    res.PeakIndex,
	}
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Record rebuilds a session record from the stored summary and trial rows.
// Traces are not stored and stay empty.
func (r SessionRow) Record(rows []TrialRow) (*trialtypes.SessionRecord, error) {
	rec := &trialtypes.SessionRecord{
		Session:        r.Session,
		Path:           r.Path,
		Frames:         r.Frames,
		RewardEvents:   r.RewardEvents,
		RewardedTrials: r.RewardedTrials,
		MeanShift:      r.MeanShift,
		MedianShift:    r.MedianShift,
		HasBoundaries:  r.HasBoundaries,
		EpochCounts: map[trialtypes.Epoch]trialtypes.EpochCounts{
			trialtypes.EpochBaseline: {Trials: r.BaselineTrials, Rewarded: r.BaselineRewarded},
			trialtypes.EpochStim:     {Trials: r.StimTrials, Rewarded: r.StimRewarded},
			trialtypes.EpochPostStim: {Trials: r.PostStimTrials, Rewarded: r.PostStimRewarded},
		},
		Trials: make([]trialtypes.Trial, 0, len(rows)),
	}
	for _, row := range rows {
		t, err := row.Trial()
		if err != nil {
			return nil, fmt.Errorf("session %s trial %d: %w", r.Session, row.Number, err)
		}
		rec.Trials = append(rec.Trials, t)
	}
	return rec, nil
}
