// Package signal provides the small one-dimensional signal kernels used by the
// trial extraction pipeline: differencing, edge detection, peak finding and
// fixed-length windowing with NaN padding.
package signal

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Diff returns the first difference x[i+1]-x[i]. The result is one shorter
// than the input; inputs shorter than two samples yield an empty slice.
func Diff(x []float64) []float64 {
	if len(x) < 2 {
		return []float64{}
	}
	d := make([]float64, len(x)-1)
	floats.SubTo(d, x[1:], x[:len(x)-1])
	return d
}

// Transitions returns every index i >= 1 where x[i-1] == from and x[i] == to.
// Values are rounded to the nearest integer before comparison; NaN never matches.
func Transitions(x []float64, from, to int) []int {
	idx := []int{}
	for i := 1; i < len(x); i++ {
		prev, okPrev := asLevel(x[i-1])
		cur, okCur := asLevel(x[i])
		if okPrev && okCur && prev == from && cur == to {
			idx = append(idx, i)
		}
	}
	return idx
}

// RisingEdges returns the indices where a binary signal goes from 0 to 1.
func RisingEdges(x []float64) []int {
	return Transitions(x, 0, 1)
}

func asLevel(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Nearest returns the element of the sorted slice closest to target and its
// position. Ties resolve to the earlier element. ok is false for an empty slice.
func Nearest(sorted []int, target int) (value int, pos int, ok bool) {
	if len(sorted) == 0 {
		return 0, -1, false
	}
	i := sort.SearchInts(sorted, target)
	switch {
	case i == 0:
		return sorted[0], 0, true
	case i == len(sorted):
		return sorted[i-1], i - 1, true
	}
	before, after := sorted[i-1], sorted[i]
	if target-before <= after-target {
		return before, i - 1, true
	}
	return after, i, true
}

// FindPeaks returns the indices of local maxima whose height is at least
// minHeight. A sample is a peak when it is strictly greater than its left
// neighbour and strictly greater than the first differing sample on its right;
// flat tops report their middle sample (rounded down). The first and last
// samples are never peaks, and NaN samples neither form nor border a peak.
func FindPeaks(x []float64, minHeight float64) []int {
	peaks := []int{}
	n := len(x)
	i := 1
	for i < n-1 {
		if math.IsNaN(x[i]) || math.IsNaN(x[i-1]) || !(x[i-1] < x[i]) {
			i++
			continue
		}
		ahead := i + 1
		for ahead < n-1 && x[ahead] == x[i] {
			ahead++
		}
		if !math.IsNaN(x[ahead]) && x[ahead] < x[i] {
			peak := (i + ahead - 1) / 2
			if x[peak] >= minHeight {
				peaks = append(peaks, peak)
			}
			i = ahead
			continue
		}
		i++
	}
	return peaks
}

// FirstPeak returns the first peak of at least minHeight, or -1.
func FirstPeak(x []float64, minHeight float64) int {
	peaks := FindPeaks(x, minHeight)
	if len(peaks) == 0 {
		return -1
	}
	return peaks[0]
}

// Window copies x[start:start+length] into a new slice, writing NaN for every
// position that falls outside x. complete reports whether no padding was needed.
func Window(x []float64, start, length int) (out []float64, complete bool) {
	out = NaNs(length)
	complete = true
	for k := 0; k < length; k++ {
		src := start + k
		if src < 0 || src >= len(x) {
			complete = false
			continue
		}
		out[k] = x[src]
	}
	return out, complete
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// CountNaN returns the number of NaN samples in x.
func CountNaN(x []float64) int {
	if !floats.HasNaN(x) {
		return 0
	}
	n := 0
	for _, v := range x {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
