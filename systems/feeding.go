package systems

import (
	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/environment"
)

// NearestFood scans every source and returns the index of the closest
// unconsumed one strictly within radius. The first source wins ties.
func NearestFood(food []environment.FoodSource, x, y, radius float64) (idx int, dist float64, ok bool) {
	idx, dist = -1, radius
	for i := range food {
		if food[i].Consumed {
			continue
		}
		if d := distance(x, y, food[i].X, food[i].Y); d < dist {
			idx, dist, ok = i, d, true
		}
	}
	if !ok {
		return -1, 0, false
	}
	return idx, dist, true
}

// InEatingRange reports whether food at dist is close enough to eat.
func InEatingRange(dist, size, margin float64) bool {
	return dist < size+margin
}

// Consume transfers a source's energy to the organism and marks it consumed.
// Returns the energy gained; an already consumed source yields nothing.
func Consume(energy *components.Energy, org *components.Organism, f *environment.FoodSource) float64 {
	if f.Consumed {
		return 0
	}
	energy.Value += f.Energy
	org.FoodEaten++
	f.Consumed = true
	return f.Energy
}
