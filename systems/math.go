package systems

import (
	"math"
	"math/rand"
)

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampAxis keeps a body of radius r inside [0, limit] along one axis.
// A body too large for the axis is pinned to its centre.
// Reports whether the coordinate had to move.
func clampAxis(v, r, limit float64) (float64, bool) {
	lo, hi := r, limit-r
	if lo > hi {
		mid := limit / 2
		return mid, v != mid
	}
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// distance returns the Euclidean distance between two points.
func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// jitter returns a uniform value in [-half, half].
func jitter(rng *rand.Rand, half float64) float64 {
	return (rng.Float64()*2 - 1) * half
}
