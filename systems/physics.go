package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/environment"
)

// Bounds represents the simulation bounds.
type Bounds struct {
	Width, Height float64
}

// MoveParams holds the tuning constants of a movement step.
type MoveParams struct {
	MoveCost float64 // energy per unit of effective speed
	PushPad  float64 // obstacle push distance beyond the radius
	Jitter   float64 // max heading jitter after an obstacle push (rad)
}

// MoveResult reports what happened during a movement step.
type MoveResult struct {
	Reflected    bool
	ObstacleHits int
}

// Move advances an organism along its heading by speed units, already scaled
// by the simulation speed multiplier. The energy cost is charged before bounds
// and obstacles clip the step.
//
// Walls clamp the body inside the arena and reflect the heading component of
// the crossed axis. Every obstacle the body touches pushes it outward from
// the obstacle centre; obstacles are checked in order and each sees the
// position left by the previous one. The final position is clamped again.
func Move(
	rng *rand.Rand,
	pos *components.Position,
	rot *components.Rotation,
	energy *components.Energy,
	speed, radius float64,
	b Bounds,
	obstacles []environment.Obstacle,
	p MoveParams,
) MoveResult {
	var res MoveResult

	x := pos.X + math.Cos(rot.Heading)*speed
	y := pos.Y + math.Sin(rot.Heading)*speed
	energy.Value -= p.MoveCost * speed

	var hit bool
	if x, hit = clampAxis(x, radius, b.Width); hit {
		rot.Heading = math.Pi - rot.Heading
		res.Reflected = true
	}
	if y, hit = clampAxis(y, radius, b.Height); hit {
		rot.Heading = -rot.Heading
		res.Reflected = true
	}

	for i := range obstacles {
		o := &obstacles[i]
		if !touchesObstacle(x, y, radius, o) {
			continue
		}
		cx, cy := o.Center()
		angle := math.Atan2(y-cy, x-cx)
		push := radius + p.PushPad
		x += math.Cos(angle) * push
		y += math.Sin(angle) * push
		rot.Heading = angle + jitter(rng, p.Jitter)
		res.ObstacleHits++
	}

	pos.X, pos.Y = x, y
	if res.ObstacleHits > 0 {
		ClampToBounds(pos, radius, b)
	}
	return res
}

// ClampToBounds moves a body back inside the arena without touching its heading.
func ClampToBounds(pos *components.Position, radius float64, b Bounds) {
	pos.X, _ = clampAxis(pos.X, radius, b.Width)
	pos.Y, _ = clampAxis(pos.Y, radius, b.Height)
}

// touchesObstacle reports whether a circle overlaps the rectangle, either by
// centre distance or by its radius-expanded bounding box.
func touchesObstacle(x, y, r float64, o *environment.Obstacle) bool {
	nx := clamp(x, o.X, o.X+o.Width)
	ny := clamp(y, o.Y, o.Y+o.Height)
	if distance(x, y, nx, ny) < r {
		return true
	}
	return x+r > o.X && x-r < o.X+o.Width &&
		y+r > o.Y && y-r < o.Y+o.Height
}
