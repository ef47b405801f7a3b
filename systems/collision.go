package systems

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/evolab/components"
)

// Body is the collidable view of a live organism.
type Body struct {
	Pos    *components.Position
	Rot    *components.Rotation
	Radius float64
}

// ResolveCollisions separates every overlapping pair of bodies once.
// Returns the number of pairs resolved.
func ResolveCollisions(rng *rand.Rand, bodies []Body, b Bounds) int {
	n := 0
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if ResolveCollision(rng, bodies[i], bodies[j], b) {
				n++
			}
		}
	}
	return n
}

// ResolveCollision pushes two overlapping bodies apart along the line between
// their centres. Each moves by the overlap times the other's share of the
// radius sum, so the larger body moves less. Both end up facing away from the
// other and are clamped into bounds without reflecting.
//
// Coincident centres separate along a random direction.
func ResolveCollision(rng *rand.Rand, a, b Body, bounds Bounds) bool {
	sum := a.Radius + b.Radius
	if sum <= 0 {
		panic(fmt.Sprintf("systems: collision between bodies with radius sum %v", sum))
	}

	dx := b.Pos.X - a.Pos.X
	dy := b.Pos.Y - a.Pos.Y
	d := math.Hypot(dx, dy)
	if d >= sum {
		return false
	}

	var nx, ny float64
	if d == 0 {
		angle := rng.Float64() * 2 * math.Pi
		nx, ny = math.Cos(angle), math.Sin(angle)
	} else {
		nx, ny = dx/d, dy/d
	}

	overlap := sum - d
	moveA := overlap * b.Radius / sum
	moveB := overlap * a.Radius / sum

	a.Pos.X -= nx * moveA
	a.Pos.Y -= ny * moveA
	b.Pos.X += nx * moveB
	b.Pos.Y += ny * moveB

	a.Rot.Heading = math.Atan2(-ny, -nx)
	b.Rot.Heading = math.Atan2(ny, nx)

	ClampToBounds(a.Pos, a.Radius, bounds)
	ClampToBounds(b.Pos, b.Radius, bounds)
	return true
}
