// Package environment defines the bounded arena, its food sources and obstacles.
package environment

import (
	"math/rand"

	"github.com/pthm-cable/evolab/config"
)

// FoodSource is a consumable energy pellet.
type FoodSource struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Energy   float64 `json:"energy"`
	Consumed bool    `json:"isConsumed"`
}

// Obstacle is a static axis-aligned rectangle anchored at its top-left corner.
type Obstacle struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the rectangle's centre point.
func (o Obstacle) Center() (x, y float64) {
	return o.X + o.Width/2, o.Y + o.Height/2
}

// Environment is the arena organisms live in.
// Obstacles never change after construction.
type Environment struct {
	Width     float64
	Height    float64
	Food      []FoodSource
	Obstacles []Obstacle
}

// New creates an environment with uniformly placed food and obstacles.
func New(rng *rand.Rand, width, height float64, foodAmount, obstacleAmount int, t config.TuningConfig) *Environment {
	env := &Environment{
		Width:     width,
		Height:    height,
		Food:      make([]FoodSource, foodAmount),
		Obstacles: make([]Obstacle, obstacleAmount),
	}

	for i := range env.Food {
		env.Food[i] = FoodSource{
			ID:     i,
			X:      rng.Float64() * width,
			Y:      rng.Float64() * height,
			Energy: t.FoodEnergy,
		}
	}

	for i := range env.Obstacles {
		env.Obstacles[i] = Obstacle{
			ID:     i,
			X:      rng.Float64() * width,
			Y:      rng.Float64() * height,
			Width:  t.ObstacleSize.Min + rng.Float64()*t.ObstacleSize.Span(),
			Height: t.ObstacleSize.Min + rng.Float64()*t.ObstacleSize.Span(),
		}
	}

	return env
}

// ConsumedRatio returns the fraction of food sources currently consumed.
// An environment without food reports 0.
func (e *Environment) ConsumedRatio() float64 {
	if len(e.Food) == 0 {
		return 0
	}
	consumed := 0
	for i := range e.Food {
		if e.Food[i].Consumed {
			consumed++
		}
	}
	return float64(consumed) / float64(len(e.Food))
}

// Regenerate revives consumed food. With probability chance*speed the pass runs;
// each consumed source then revives independently with probability perSource
// at a new random position. Returns the number of sources revived.
func (e *Environment) Regenerate(rng *rand.Rand, speed, chance, perSource float64) int {
	if rng.Float64() >= chance*speed {
		return 0
	}
	revived := 0
	for i := range e.Food {
		f := &e.Food[i]
		if f.Consumed && rng.Float64() < perSource {
			f.Consumed = false
			f.X = rng.Float64() * e.Width
			f.Y = rng.Float64() * e.Height
			revived++
		}
	}
	return revived
}

// ResetFood marks every source unconsumed at a new random position.
func (e *Environment) ResetFood(rng *rand.Rand) {
	for i := range e.Food {
		f := &e.Food[i]
		f.Consumed = false
		f.X = rng.Float64() * e.Width
		f.Y = rng.Float64() * e.Height
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (e *Environment) Clone() Environment {
	c := Environment{Width: e.Width, Height: e.Height}
	c.Food = make([]FoodSource, len(e.Food))
	copy(c.Food, e.Food)
	c.Obstacles = make([]Obstacle, len(e.Obstacles))
	copy(c.Obstacles, e.Obstacles)
	return c
}
