package systems

import (
	"math"

	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/config"
)

// UpdateEnergy applies metabolism and aging scaled by the speed multiplier,
// marking the organism dead once energy reaches zero.
// Returns whether the organism is still alive.
func UpdateEnergy(energy *components.Energy, metabolism, agingRate, speed float64) bool {
	if !energy.Alive {
		return false
	}

	energy.Value -= metabolism * speed
	energy.Age += agingRate * speed

	if energy.Value <= 0 {
		energy.Alive = false
	}
	return energy.Alive
}

// DecayMarker counts the just-reproduced marker down, floored at zero.
func DecayMarker(org *components.Organism, speed float64) {
	org.ReproMarker = math.Max(0, org.ReproMarker-speed)
}

// Fitness scores survival and reproductive success. Never negative.
func Fitness(energy *components.Energy, org *components.Organism, w config.FitnessWeights) float64 {
	f := energy.Age*w.Age +
		energy.Value*w.Energy +
		float64(org.FoodEaten)*w.Food +
		float64(org.Children)*w.Children
	return math.Max(0, f)
}
