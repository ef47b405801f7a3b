// Package components defines ECS components for the simulation.
package components

// Position represents an entity's position in simulation-space units.
type Position struct {
	X, Y float64
}

// Rotation represents an entity's facing direction.
type Rotation struct {
	Heading float64 // radians
}
