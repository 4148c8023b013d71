// Package behavior extracts trials from manipulandum recordings.
//
// A session is segmented at robot state transitions, each trial is matched to
// the nearest reward delivery, re-aligned to a movement onset found on the
// position derivative, cut into fixed-length trace windows and labelled with
// the stimulation epoch it falls in.
package behavior

import (
	"trialkit/internal/signal"
	"trialkit/pkg/trialtypes"
)

// DetectTrials returns the frame index of every from->to robot state
// transition, detected by comparing each frame with the one before it.
func DetectTrials(state []float64, from, to trialtypes.RobotState) []int {
	return signal.Transitions(state, int(from), int(to))
}

// DetectRewardRises returns the frames where reward delivery switches on.
func DetectRewardRises(reward []float64) []int {
	return signal.RisingEdges(reward)
}

// RewardMatch is the reward assignment of one trial.
type RewardMatch struct {
	Rewarded    bool
	RewardIndex int // nearest reward rise, -1 when the session has none
	Distance    int // absolute frames between trial and RewardIndex
}

// MatchRewards pairs each trial with its nearest reward rise in time. A trial
// is rewarded when that rise lies strictly closer than tolerance frames.
// rises must be sorted; several trials may share one rise.
func MatchRewards(trials, rises []int, tolerance int) []RewardMatch {
	matches := make([]RewardMatch, len(trials))
	for i, trial := range trials {
		nearest, _, ok := signal.Nearest(rises, trial)
		if !ok {
			matches[i] = RewardMatch{RewardIndex: -1, Distance: -1}
			continue
		}
		dist := nearest - trial
		if dist < 0 {
			dist = -dist
		}
		matches[i] = RewardMatch{
			Rewarded:    dist < tolerance,
			RewardIndex: nearest,
			Distance:    dist,
		}
	}
	return matches
}
