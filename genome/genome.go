// Package genome defines heritable organism traits and their mutation.
package genome

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/evolab/config"
)

// RGB is a display colour with one byte per channel.
type RGB [3]uint8

// Genome holds the heritable traits of an organism.
// Genomes are values: copying one never aliases another organism's traits.
type Genome struct {
	Speed                 float64 `json:"speed"`
	SensorRange           float64 `json:"sensorRange"`
	Size                  float64 `json:"size"`
	Metabolism            float64 `json:"metabolism"`
	Color                 RGB     `json:"color"`
	ReproductionThreshold float64 `json:"reproductionThreshold"`
	Aggressiveness        float64 `json:"aggressiveness"` // reserved, no behaviour reads it yet
}

// Random draws a genome uniformly within the configured trait ranges.
func Random(rng *rand.Rand, r config.TraitRanges) Genome {
	return Genome{
		Speed:       uniform(rng, r.Speed),
		SensorRange: uniform(rng, r.SensorRange),
		Size:        uniform(rng, r.Size),
		Metabolism:  uniform(rng, r.Metabolism),
		Color: RGB{
			uint8(rng.Intn(256)),
			uint8(rng.Intn(256)),
			uint8(rng.Intn(256)),
		},
		ReproductionThreshold: uniform(rng, r.ReproductionThreshold),
		Aggressiveness:        uniform(rng, r.Aggressiveness),
	}
}

// Mutate returns a perturbed copy of g. Each trait mutates independently with
// probability rate; the receiver is never modified.
//
// Scalar traits are scaled by a factor in [ScaleMin, ScaleMax] and floored at
// Epsilon. Aggressiveness moves by at most AggressionStep and stays in [0,1].
// When the colour mutates, every channel moves by an integer in
// [-ColorStep, ColorStep] and stays in [0,255].
func (g Genome) Mutate(rng *rand.Rand, rate float64, m config.MutationTuning) Genome {
	child := g

	child.Speed = mutateScalar(rng, rate, child.Speed, m)
	child.SensorRange = mutateScalar(rng, rate, child.SensorRange, m)
	child.Size = mutateScalar(rng, rate, child.Size, m)
	child.Metabolism = mutateScalar(rng, rate, child.Metabolism, m)
	child.ReproductionThreshold = mutateScalar(rng, rate, child.ReproductionThreshold, m)

	if rng.Float64() < rate {
		delta := (rng.Float64()*2 - 1) * m.AggressionStep
		child.Aggressiveness = clamp(child.Aggressiveness+delta, 0, 1)
	}

	if rng.Float64() < rate {
		for i, c := range child.Color {
			delta := rng.Intn(2*m.ColorStep+1) - m.ColorStep
			child.Color[i] = uint8(clamp(float64(int(c)+delta), 0, 255))
		}
	}

	return child
}

// Radius is the collision radius of the body.
func (g Genome) Radius() float64 { return g.Size }

func mutateScalar(rng *rand.Rand, rate, v float64, m config.MutationTuning) float64 {
	if rng.Float64() >= rate {
		return v
	}
	factor := m.ScaleMin + rng.Float64()*(m.ScaleMax-m.ScaleMin)
	return math.Max(v*factor, m.Epsilon)
}

func uniform(rng *rand.Rand, r config.Range) float64 {
	return r.Min + rng.Float64()*r.Span()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
