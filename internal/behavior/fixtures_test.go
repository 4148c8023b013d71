package behavior

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trialkit/internal/config"
	"trialkit/internal/table"
)

// testConfig is a scaled-down configuration: 100 Hz, 10-frame search window,
// 11-frame traces, 10 s epochs.
func testConfig() config.BehaviorConfig {
	return config.BehaviorConfig{
		SampleRate:      100,
		TrimMinutes:     1,
		HeaderRows:      1,
		StateColumn:     1,
		RewardColumn:    2,
		LickColumn:      3,
		PositionColumn:  4,
		TransitionFrom:  0,
		TransitionTo:    1,
		RewardTolerance: 20,
		PreWindow:       10,
		HalfWindow:      5,
		Thresholds:      []float64{0.25, 0.15},
		EpochSeconds:    10,
	}
}

type session struct {
	state, reward, licking, position []float64
}

// trialStarts are the Hold->Waiting transitions of the synthetic session.
var trialStarts = []int{3, 1500, 2500, 3500, 4999}

// newSession builds a 5000-frame recording. Each trial holds state 1 for 50
// frames, trials at 1500 and 3500 get a reward 10 frames later, the one at
// 2500 gets a reward 30 frames later, and every trial except the first has a
// velocity bump peaking 4 frames before its transition.
func newSession() session {
	const n = 5000
	s := session{
		state:    make([]float64, n),
		reward:   make([]float64, n),
		licking:  make([]float64, n),
		position: make([]float64, n),
	}
	velocity := make([]float64, n)

	for _, t := range trialStarts {
		for k := t; k < t+50 && k < n; k++ {
			s.state[k] = 1
		}
		if t-5 >= 0 {
			velocity[t-5] = 0.2
			velocity[t-4] = 0.5
			velocity[t-3] = 0.2
		}
	}
	for _, r := range []int{1510, 2530, 3510} {
		for k := r; k < r+5; k++ {
			s.reward[k] = 1
		}
	}
	for k := 1495; k < 1520; k++ {
		s.licking[k] = 1
	}
	for k := 1; k < n; k++ {
		s.position[k] = s.position[k-1] + velocity[k-1]
	}
	return s
}

func (s session) table(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(map[string][]float64{
		ChannelState:    append([]float64(nil), s.state...),
		ChannelReward:   append([]float64(nil), s.reward...),
		ChannelLicking:  append([]float64(nil), s.licking...),
		ChannelPosition: append([]float64(nil), s.position...),
	})
	require.NoError(t, err)
	return tbl
}

func (s session) writeCSV(t *testing.T, dir, name string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,state,reward,lick,y\n")
	for i := range s.state {
		fmt.Fprintf(&b, "%.3f,%g,%g,%g,%g\n", float64(i)/100, s.state[i], s.reward[i], s.licking[i], s.position[i])
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
