// Package trialtypes defines the shared data types for trialkit.
// It holds the behavioral trial model, session aggregates and ephys records
// used across the analysis, storage and export layers.
package trialtypes

import "fmt"

// RobotState is the categorical state reported by the manipulandum.
type RobotState int

const (
	// StateHold means the animal is holding the handle in the start position.
	StateHold RobotState = 0
	// StateWaiting means the robot is waiting after a completed movement.
	StateWaiting RobotState = 1
	// StateReturn means the robot is returning the handle.
	StateReturn RobotState = 3
)

// String returns a readable name for the robot state.
func (s RobotState) String() string {
	switch s {
	case StateHold:
		return "hold"
	case StateWaiting:
		return "waiting"
	case StateReturn:
		return "return"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Epoch is the time segment of a session a trial falls in.
type Epoch int

const (
	// EpochNone marks trials outside every epoch window.
	EpochNone Epoch = iota
	// EpochBaseline is the window before stimulation starts.
	EpochBaseline
	// EpochStim is the stimulation window.
	EpochStim
	// EpochPostStim is the window after stimulation ends.
	EpochPostStim
)

var epochNames = map[Epoch]string{
	EpochNone:     "none",
	EpochBaseline: "baseline",
	EpochStim:     "stim",
	EpochPostStim: "post_stim",
}

func (e Epoch) String() string {
	if n, ok := epochNames[e]; ok {
		return n
	}
	return "unknown"
}

// ParseEpoch converts a stored epoch name back into an Epoch.
func ParseEpoch(name string) (Epoch, error) {
	for e, n := range epochNames {
		if n == name {
			return e, nil
		}
	}
	return EpochNone, fmt.Errorf("unknown epoch %q", name)
}

// MarshalText encodes the epoch by name, so JSON output and map keys match
// the names used in CSV and the run store.
func (e Epoch) MarshalText() ([]byte, error) {
	n, ok := epochNames[e]
	if !ok {
		return nil, fmt.Errorf("unknown epoch %d", int(e))
	}
	return []byte(n), nil
}

// UnmarshalText decodes an epoch name.
func (e *Epoch) UnmarshalText(text []byte) error {
	parsed, err := ParseEpoch(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Epochs lists the labelled epochs in session order.
var Epochs = []Epoch{EpochBaseline, EpochStim, EpochPostStim}

// Trial is a single reach, anchored at a robot state transition.
type Trial struct {
	Number      int     `json:"number" yaml:"number"`
	RawIndex    int     `json:"raw_index" yaml:"raw_index"`
	OnsetIndex  int     `json:"onset_index" yaml:"onset_index"`
	Shift       int     `json:"shift" yaml:"shift"`
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Rewarded    bool    `json:"rewarded" yaml:"rewarded"`
	RewardIndex int     `json:"reward_index" yaml:"reward_index"`
	Epoch       Epoch   `json:"epoch" yaml:"epoch"`
	InRange     bool    `json:"in_range" yaml:"in_range"`
}

// TraceSet holds the onset-aligned windows cut for one trial.
// Every slice has the same fixed length; missing samples are NaN.
type TraceSet struct {
	Position []float64
	Licking  []float64
	Reward   []float64
}

// EpochCounts tallies trials and rewarded trials for one epoch.
type EpochCounts struct {
	Trials   int `json:"trials" yaml:"trials"`
	Rewarded int `json:"rewarded" yaml:"rewarded"`
}

// SessionRecord aggregates everything extracted from one behavior file.
type SessionRecord struct {
	Session        string                `json:"session" yaml:"session"`
	Path           string                `json:"path" yaml:"path"`
	Frames         int                   `json:"frames" yaml:"frames"`
	Trials         []Trial               `json:"trials" yaml:"-"`
	Traces         []TraceSet            `json:"-" yaml:"-"`
	RewardEvents   int                   `json:"reward_events" yaml:"reward_events"`
	RewardedTrials int                   `json:"rewarded_trials" yaml:"rewarded_trials"`
	EpochCounts    map[Epoch]EpochCounts `json:"epoch_counts" yaml:"-"`
	MeanShift      float64               `json:"mean_shift" yaml:"mean_shift"`
	MedianShift    float64               `json:"median_shift" yaml:"median_shift"`
	HasBoundaries  bool                  `json:"has_boundaries" yaml:"has_boundaries"`
}

// TrialCount returns the number of detected trials.
func (s *SessionRecord) TrialCount() int {
	return len(s.Trials)
}
