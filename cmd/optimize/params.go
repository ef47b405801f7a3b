// Package main provides CMA-ES optimization for evolab tuning parameters.
package main

import (
	"github.com/pthm-cable/evolab/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Genetics
			{Name: "mutation_rate", Path: "simulation.mutation_rate", Min: 0.0, Max: 0.5, Default: 0.05},
			// Energy
			{Name: "food_energy", Path: "tuning.food_energy", Min: 10, Max: 150, Default: 50},
			{Name: "move_cost", Path: "tuning.move_cost", Min: 0.01, Max: 0.5, Default: 0.1},
			// Food regeneration
			{Name: "regen_chance", Path: "tuning.regen_chance", Min: 0.001, Max: 0.2, Default: 0.01},
			{Name: "regen_source_prob", Path: "tuning.regen_source_prob", Min: 0.01, Max: 1.0, Default: 0.1},
			// Reproduction (parent_energy_keep follows as 1 - share)
			{Name: "child_energy_share", Path: "tuning.child_energy_share", Min: 0.1, Max: 0.6, Default: 0.3},
			{Name: "spawn_offset", Path: "tuning.spawn_offset", Min: 1, Max: 50, Default: 10},
			// Behaviour
			{Name: "wander_chance", Path: "tuning.wander_chance", Min: 0.0, Max: 0.5, Default: 0.05},
			{Name: "eat_margin", Path: "tuning.eat_margin", Min: 0.5, Max: 20, Default: 5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)

	cfg.Simulation.MutationRate = c[0]
	cfg.Tuning.FoodEnergy = c[1]
	cfg.Tuning.MoveCost = c[2]
	cfg.Tuning.RegenChance = c[3]
	cfg.Tuning.RegenSourceProb = c[4]
	cfg.Tuning.ChildEnergyShare = c[5]
	cfg.Tuning.ParentEnergyKeep = 1 - c[5]
	cfg.Tuning.SpawnOffset = c[6]
	cfg.Tuning.WanderChance = c[7]
	cfg.Tuning.EatMargin = c[8]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Simulation.MutationRate,
		cfg.Tuning.FoodEnergy,
		cfg.Tuning.MoveCost,
		cfg.Tuning.RegenChance,
		cfg.Tuning.RegenSourceProb,
		cfg.Tuning.ChildEnergyShare,
		cfg.Tuning.SpawnOffset,
		cfg.Tuning.WanderChance,
		cfg.Tuning.EatMargin,
	}
}
