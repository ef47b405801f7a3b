// Package telemetry aggregates fitness statistics and run telemetry.
package telemetry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FitnessHistory is a sliding window of sampled fitness values.
// It never holds more than its capacity; the oldest values drop first.
type FitnessHistory struct {
	values   []float64
	capacity int
}

// NewFitnessHistory creates an empty history holding at most capacity values.
func NewFitnessHistory(capacity int) *FitnessHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &FitnessHistory{
		values:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a sample of values and truncates to the most recent capacity entries.
func (h *FitnessHistory) Append(vs []float64) {
	h.values = append(h.values, vs...)
	if over := len(h.values) - h.capacity; over > 0 {
		h.values = append(h.values[:0], h.values[over:]...)
	}
}

// Reset empties the history.
func (h *FitnessHistory) Reset() {
	h.values = h.values[:0]
}

// Len returns the number of stored values.
func (h *FitnessHistory) Len() int { return len(h.values) }

// Values returns a copy of the stored values, oldest first.
func (h *FitnessHistory) Values() []float64 {
	out := make([]float64, len(h.values))
	copy(out, h.values)
	return out
}

// Max returns the largest stored value, or 0 for an empty history.
func (h *FitnessHistory) Max() float64 {
	if len(h.values) == 0 {
		return 0
	}
	return floats.Max(h.values)
}

// Statistics summarises fitness for the current generation.
type Statistics struct {
	Best    float64 `json:"bestFitness"`
	Average float64 `json:"averageFitness"`
	Worst   float64 `json:"worstFitness"`
}

// Aggregate computes statistics from live fitness values and the history.
// Best covers both, average is taken over history followed by live values,
// and worst looks at live values only. Returns false when live is empty.
func Aggregate(live []float64, h *FitnessHistory) (Statistics, bool) {
	if len(live) == 0 {
		return Statistics{}, false
	}

	all := make([]float64, 0, h.Len()+len(live))
	all = append(all, h.values...)
	all = append(all, live...)

	return Statistics{
		Best:    max(floats.Max(live), h.Max()),
		Average: stat.Mean(all, nil),
		Worst:   floats.Min(live),
	}, true
}
