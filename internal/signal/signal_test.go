package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	assert.Equal(t, []float64{1, 2, -3}, Diff([]float64{0, 1, 3, 0}))
	assert.Empty(t, Diff([]float64{5}))
	assert.Empty(t, Diff(nil))
}

func TestTransitions(t *testing.T) {
	state := []float64{0, 0, 1, 1, 3, 0, 1, 0, 0, 1}
	assert.Equal(t, []int{2, 6, 9}, Transitions(state, 0, 1))
	assert.Equal(t, []int{7}, Transitions(state, 1, 0))
}

func TestTransitionsIgnoresNaNAndRoundsNoise(t *testing.T) {
	state := []float64{0, math.NaN(), 1, 0.02, 0.98, 1}
	assert.Equal(t, []int{4}, Transitions(state, 0, 1))
}

func TestRisingEdges(t *testing.T) {
	reward := []float64{1, 1, 0, 1, 1, 0, 0, 1}
	assert.Equal(t, []int{3, 7}, RisingEdges(reward))
}

func TestNearest(t *testing.T) {
	sorted := []int{100, 200, 400}

	tests := []struct {
		name   string
		target int
		value  int
		pos    int
	}{
		{"before first", 10, 100, 0},
		{"after last", 900, 400, 2},
		{"closer to later", 190, 200, 1},
		{"tie resolves earlier", 300, 200, 1},
		{"exact", 400, 400, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, p, ok := Nearest(sorted, tt.target)
			assert.True(t, ok)
			assert.Equal(t, tt.value, v)
			assert.Equal(t, tt.pos, p)
		})
	}

	_, pos, ok := Nearest(nil, 5)
	assert.False(t, ok)
	assert.Equal(t, -1, pos)
}

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name   string
		x      []float64
		height float64
		want   []int
	}{
		{"single peak", []float64{0, 1, 0}, 0, []int{1}},
		{"edges are not peaks", []float64{3, 1, 2}, 0, []int{}},
		{"height filters", []float64{0, 0.2, 0, 0.3, 0}, 0.25, []int{3}},
		{"plateau reports middle", []float64{0, 1, 1, 1, 0}, 0, []int{2}},
		{"even plateau rounds down", []float64{0, 1, 1, 0}, 0, []int{1}},
		{"plateau reaching end is not a peak", []float64{0, 1, 1, 1}, 0, []int{}},
		{"nan does not form peaks", []float64{0, math.NaN(), 0, 2, math.NaN()}, 0, []int{}},
		{"multiple", []float64{0, 2, 1, 3, 1, 0.5, 0}, 0, []int{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindPeaks(tt.x, tt.height))
		})
	}
}

func TestFirstPeak(t *testing.T) {
	assert.Equal(t, 3, FirstPeak([]float64{0, 0.2, 0, 0.5, 0, 0.9, 0}, 0.25))
	assert.Equal(t, -1, FirstPeak([]float64{0, 0.2, 0}, 0.25))
}

func TestWindow(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	out, complete := Window(x, 1, 3)
	assert.True(t, complete)
	assert.Equal(t, []float64{2, 3, 4}, out)

	out, complete = Window(x, -2, 4)
	assert.False(t, complete)
	assert.Len(t, out, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, []float64{1, 2}, out[2:])

	out, complete = Window(x, 4, 3)
	assert.False(t, complete)
	assert.Equal(t, 2, CountNaN(out))
}

func TestCountNaN(t *testing.T) {
	assert.Equal(t, 0, CountNaN([]float64{1, 2}))
	assert.Equal(t, 3, CountNaN(NaNs(3)))
}
