package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInvalidSpeed is returned when a speed multiplier is not a positive finite number.
var ErrInvalidSpeed = errors.New("sim: speed must be a positive finite number")

// Controller holds the pause flag and speed multiplier read at the top of
// every tick. It is safe for concurrent use, so a transport goroutine may
// change it while another goroutine drives ticks.
//
// Each Simulation owns a private controller unless one is shared through
// WithController.
type Controller struct {
	mu     sync.RWMutex
	paused bool
	speed  float64
}

// NewController creates a running controller with the given speed.
// A non-positive speed falls back to 1.
func NewController(speed float64) *Controller {
	if !validSpeed(speed) {
		speed = 1
	}
	return &Controller{speed: speed}
}

// TogglePause sets the pause flag.
func (c *Controller) TogglePause(paused bool) {
	c.mu.Lock()
	c.paused = paused
	c.mu.Unlock()
}

// SetSpeed sets the speed multiplier for subsequent ticks.
func (c *Controller) SetSpeed(speed float64) error {
	if !validSpeed(speed) {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, speed)
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	return nil
}

// Paused reports whether ticks are currently no-ops.
func (c *Controller) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Speed returns the current speed multiplier.
func (c *Controller) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// State returns both values under one lock so a tick sees a consistent pair.
func (c *Controller) State() (paused bool, speed float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused, c.speed
}

func validSpeed(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
