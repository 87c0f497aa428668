// Package history keeps bounded rings of recent levels and classifier
// results and reduces them to smoothed values (C6, §4.6, §3).
package history

import (
	"github.com/linuxmatters/agc/internal/classify"
	"github.com/linuxmatters/agc/internal/level"
)

// MinSamples are the minimum number of occurrences (unweighted) a label
// needs in the ring before it can win as the predominant label (§4.6
// defaults).
var MinSamples = map[classify.Label]float64{
	classify.Dialogue: 2,
	classify.Music:    3,
	classify.Unknown:  1,
}

// Window is a fixed-length ring of the last H dB readings and classifier
// results. Entries are never reallocated; new ones evict the oldest.
type Window struct {
	capacity int
	dbs      []float64
	results  []classify.Result
	next     int
	filled   int
}

// NewWindow returns a Window holding up to capacity entries.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		dbs:      make([]float64, capacity),
		results:  make([]classify.Result, capacity),
	}
}

// Push records one new (dB, classifier result) pair, evicting the oldest
// entry once the ring is full.
func (w *Window) Push(db float64, res classify.Result) {
	w.dbs[w.next] = db
	w.results[w.next] = res
	w.next = (w.next + 1) % w.capacity
	if w.filled < w.capacity {
		w.filled++
	}
}

// Len returns the number of entries currently held.
func (w *Window) Len() int {
	return w.filled
}

// SmoothedDB returns the mean of the dB ring, or the level floor if the
// ring is empty.
func (w *Window) SmoothedDB() float64 {
	if w.filled == 0 {
		return level.Floor
	}
	var sum float64
	for i := 0; i < w.filled; i++ {
		sum += w.dbs[i]
	}
	return sum / float64(w.filled)
}

// Smoothed computes the predominant label and its smoothed confidence.
// Each label's occurrences in the ring are weighted by confidence; the
// highest-weighted label wins provided it clears MinSamples, otherwise
// Unknown is returned with zero confidence.
func (w *Window) Smoothed() (classify.Label, float64) {
	if w.filled == 0 {
		return classify.Unknown, 0
	}

	weighted := map[classify.Label]float64{}
	count := map[classify.Label]int{}
	confSum := map[classify.Label]float64{}

	for i := 0; i < w.filled; i++ {
		r := w.results[i]
		weighted[r.Label] += r.Confidence
		count[r.Label]++
		confSum[r.Label] += r.Confidence
	}

	var best classify.Label = classify.Unknown
	var bestWeight = -1.0
	for _, l := range []classify.Label{classify.Dialogue, classify.Music, classify.Unknown} {
		if count[l] == 0 {
			continue
		}
		if weighted[l] > bestWeight {
			bestWeight = weighted[l]
			best = l
		}
	}

	if bestWeight < 0 || float64(count[best]) < MinSamples[best] {
		return classify.Unknown, 0
	}
	return best, confSum[best] / float64(count[best])
}
