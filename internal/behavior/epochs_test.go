package behavior

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialkit/pkg/trialtypes"
)

func TestBoundaryWindows(t *testing.T) {
	b := Boundary{Session: "m1", StimStart: 20, StimEnd: 30}
	w := b.Windows(100, 1000)

	assert.Equal(t, [2]int{1000, 2000}, w.Baseline)
	assert.Equal(t, [2]int{2000, 3000}, w.Stim)
	assert.Equal(t, [2]int{3000, 4000}, w.PostStim)

	tests := []struct {
		frame int
		want  trialtypes.Epoch
	}{
		{999, trialtypes.EpochNone},
		{1000, trialtypes.EpochBaseline},
		{1999, trialtypes.EpochBaseline},
		{2000, trialtypes.EpochStim},
		{2999, trialtypes.EpochStim},
		{3000, trialtypes.EpochPostStim},
		{3999, trialtypes.EpochPostStim},
		{4000, trialtypes.EpochNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Classify(tt.frame), "frame %d", tt.frame)
	}
}

func TestBoundaryWindowsFractionalSeconds(t *testing.T) {
	w := Boundary{Session: "m1", StimStart: 1.005, StimEnd: 4.35}.Windows(1000, 1000)

	assert.Equal(t, [2]int{5, 1005}, w.Baseline)
	assert.Equal(t, [2]int{1005, 4350}, w.Stim)
	assert.Equal(t, [2]int{4350, 5350}, w.PostStim)
	assert.Equal(t, trialtypes.EpochBaseline, w.Classify(1004))
	assert.Equal(t, trialtypes.EpochStim, w.Classify(1005))
	assert.Equal(t, trialtypes.EpochStim, w.Classify(4349))
	assert.Equal(t, trialtypes.EpochPostStim, w.Classify(4350))
}

func TestEpochsMutuallyExclusive(t *testing.T) {
	w := Boundary{StimStart: 5, StimEnd: 6}.Windows(100, 200)
	for frame := 0; frame < 1000; frame++ {
		hits := 0
		for _, win := range [][2]int{w.Baseline, w.Stim, w.PostStim} {
			if inWindow(frame, win) {
				hits++
			}
		}
		assert.LessOrEqual(t, hits, 1, "frame %d", frame)
	}
}

func TestReadBoundaries(t *testing.T) {
	data := "stim_end_s, session ,stim_start_s,notes\n30,m1,20,ok\n12.5,m2,2.5,\n"

	table, err := ReadBoundaries(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, table, 2)

	b, ok := table.Lookup("m2")
	require.True(t, ok)
	assert.Equal(t, Boundary{Session: "m2", StimStart: 2.5, StimEnd: 12.5}, b)

	_, ok = table.Lookup("m3")
	assert.False(t, ok)
}

func TestReadBoundariesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		bad  bool
	}{
		{"missing column", "session,stim_start_s\nm1,3\n", false},
		{"end before start", "session,stim_start_s,stim_end_s\nm1,30,20\n", true},
		{"not a number", "session,stim_start_s,stim_end_s\nm1,abc,20\n", true},
		{"empty session", "session,stim_start_s,stim_end_s\n,1,2\n", true},
		{"duplicate", "session,stim_start_s,stim_end_s\nm1,1,2\nm1,3,4\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBoundaries(strings.NewReader(tt.data))
			require.Error(t, err)
			if tt.bad {
				assert.ErrorIs(t, err, ErrBadBoundary)
			}
		})
	}
}

func TestReadBoundariesEmpty(t *testing.T) {
	table, err := ReadBoundaries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLoadBoundaries(t *testing.T) {
	table, err := LoadBoundaries("")
	require.NoError(t, err)
	assert.Empty(t, table)

	path := filepath.Join(t.TempDir(), "stim.csv")
	require.NoError(t, os.WriteFile(path, []byte("session,stim_start_s,stim_end_s\nm1,20,30\n"), 0o600))
	table, err = LoadBoundaries(path)
	require.NoError(t, err)
	assert.Contains(t, table, "m1")

	_, err = LoadBoundaries(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
