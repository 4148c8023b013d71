package behavior

import (
	"trialkit/internal/signal"
	"trialkit/pkg/trialtypes"
)

// Onset is the result of aligning one trial to movement onset.
type Onset struct {
	Index     int     // onset frame
	Shift     int     // frames between onset and the raw trial index
	Threshold float64 // threshold that found the onset, 0 for the fallback
}

// Aligner finds movement onsets and cuts onset-centred windows.
type Aligner struct {
	PreWindow  int       // frames searched before the trial index
	HalfWindow int       // frames kept on each side of the onset
	Thresholds []float64 // tried in order until one finds a peak
}

// Align searches the PreWindow+1 position samples ending at raw for the first
// derivative peak reaching a threshold, relaxing the threshold in order. When
// no threshold yields a peak the onset is the window end and the shift is 0.
func (a Aligner) Align(position []float64, raw int) Onset {
	window, _ := signal.Window(position, raw-a.PreWindow, a.PreWindow+1)
	velocity := signal.Diff(window)

	for _, th := range a.Thresholds {
		if p := signal.FirstPeak(velocity, th); p >= 0 {
			shift := len(velocity) - p
			return Onset{Index: raw - shift, Shift: shift, Threshold: th}
		}
	}
	return Onset{Index: raw}
}

// TraceLength is the length of every window returned by Cut.
func (a Aligner) TraceLength() int {
	return 2*a.HalfWindow + 1
}

// Cut slices the position, licking and reward channels around onset.
// If the window does not fit inside the recording every sample of every
// channel is NaN and inRange is false.
func (a Aligner) Cut(position, licking, reward []float64, onset int) (traces trialtypes.TraceSet, inRange bool) {
	start := onset - a.HalfWindow
	length := a.TraceLength()

	pos, okPos := signal.Window(position, start, length)
	lick, okLick := signal.Window(licking, start, length)
	rew, okRew := signal.Window(reward, start, length)
	if !(okPos && okLick && okRew) {
		return trialtypes.TraceSet{
			Position: signal.NaNs(length),
			Licking:  signal.NaNs(length),
			Reward:   signal.NaNs(length),
		}, false
	}
	return trialtypes.TraceSet{Position: pos, Licking: lick, Reward: rew}, true
}
