// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Tuning     TuningConfig     `yaml:"tuning"`
	Runner     RunnerConfig     `yaml:"runner"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// SimulationConfig holds the options recognised when creating a simulation.
// JSON tags match the payload sent by viewers when starting a run.
type SimulationConfig struct {
	PopulationSize    int     `yaml:"population_size" json:"populationSize"`
	MutationRate      float64 `yaml:"mutation_rate" json:"mutationRate"`
	CrossoverRate     float64 `yaml:"crossover_rate" json:"crossoverRate"` // reserved, unused by the engine
	GenerationLimit   int     `yaml:"generation_limit" json:"generationLimit"`
	EnvironmentWidth  float64 `yaml:"environment_width" json:"environmentWidth"`
	EnvironmentHeight float64 `yaml:"environment_height" json:"environmentHeight"`
	FoodAmount        int     `yaml:"food_amount" json:"foodAmount"`
	ObstacleAmount    int     `yaml:"obstacle_amount" json:"obstacleAmount"`
}

// Range is a closed interval used for uniform sampling.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// TraitRanges holds the sampling ranges for freshly created genomes.
type TraitRanges struct {
	Speed                 Range `yaml:"speed"`
	SensorRange           Range `yaml:"sensor_range"`
	Size                  Range `yaml:"size"`
	Metabolism            Range `yaml:"metabolism"`
	ReproductionThreshold Range `yaml:"reproduction_threshold"`
	Aggressiveness        Range `yaml:"aggressiveness"`
}

// MutationTuning holds per-trait perturbation magnitudes.
type MutationTuning struct {
	ScaleMin       float64 `yaml:"scale_min"`       // multiplicative factor lower bound
	ScaleMax       float64 `yaml:"scale_max"`       // multiplicative factor upper bound
	AggressionStep float64 `yaml:"aggression_step"` // additive delta half-width
	ColorStep      int     `yaml:"color_step"`      // integer delta half-width per channel
	Epsilon        float64 `yaml:"epsilon"`         // floor for positive scalar traits
}

// FitnessWeights holds the coefficients of the fitness formula.
type FitnessWeights struct {
	Age      float64 `yaml:"age"`
	Energy   float64 `yaml:"energy"`
	Food     float64 `yaml:"food"`
	Children float64 `yaml:"children"`
}

// TuningConfig holds the numeric constants of the tick algorithm.
type TuningConfig struct {
	InitialEnergy    float64 `yaml:"initial_energy"`
	FoodEnergy       float64 `yaml:"food_energy"`
	ObstacleSize     Range   `yaml:"obstacle_size"`
	EatMargin        float64 `yaml:"eat_margin"`         // eat when distance < size + margin
	AgingRate        float64 `yaml:"aging_rate"`         // age gained per tick
	MoveCost         float64 `yaml:"move_cost"`          // energy per unit of effective speed
	WanderChance     float64 `yaml:"wander_chance"`      // probability of a heading change without food
	WanderAngle      float64 `yaml:"wander_angle"`       // max heading change when wandering (rad)
	ObstacleJitter   float64 `yaml:"obstacle_jitter"`    // max heading jitter after an obstacle push (rad)
	ObstaclePushPad  float64 `yaml:"obstacle_push_pad"`  // push distance = size + pad
	RegenChance      float64 `yaml:"regen_chance"`       // per tick, scaled by speed
	RegenSourceProb  float64 `yaml:"regen_source_prob"`  // per consumed source when regenerating
	ChildEnergyShare float64 `yaml:"child_energy_share"` // fraction of parent energy given to the child
	ParentEnergyKeep float64 `yaml:"parent_energy_keep"` // fraction of energy the parent keeps
	SpawnOffset      float64 `yaml:"spawn_offset"`       // child offset half-width per axis
	ReproMarkerTicks float64 `yaml:"repro_marker_ticks"` // just-reproduced marker duration
	GenerationMaxAge float64 `yaml:"generation_max_age"`
	FoodExhaustion   float64 `yaml:"food_exhaustion"` // consumed ratio that ends a generation
	HistoryCapacity  int     `yaml:"history_capacity"`
	HistoryInterval  int     `yaml:"history_interval"` // sample history every N generation-age units
	GridCellSize     float64 `yaml:"grid_cell_size"`   // food index cell size

	Traits   TraitRanges    `yaml:"traits"`
	Mutation MutationTuning `yaml:"mutation"`
	Fitness  FitnessWeights `yaml:"fitness"`
}

// RunnerConfig holds driver parameters.
type RunnerConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"` // wall time between ticks (0 = as fast as possible)
	InitialSpeed  float64       `yaml:"initial_speed"`
	RecordTimeout time.Duration `yaml:"record_timeout"` // per call deadline for the recorder
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	HallOfFameSize      int `yaml:"hall_of_fame_size"`
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: parsing embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseSimulationJSON overlays a JSON options payload onto the default
// simulation options. Missing keys keep their defaults, unknown keys are ignored.
func ParseSimulationJSON(data []byte) (SimulationConfig, error) {
	opts := Default().Simulation
	if len(data) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return SimulationConfig{}, fmt.Errorf("parsing simulation options: %w", err)
	}
	if err := opts.Validate(); err != nil {
		return SimulationConfig{}, err
	}
	return opts, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	t := c.Tuning
	if t.HistoryCapacity <= 0 {
		return errors.New("config: tuning.history_capacity must be positive")
	}
	if t.HistoryInterval <= 0 {
		return errors.New("config: tuning.history_interval must be positive")
	}
	if t.GridCellSize <= 0 {
		return errors.New("config: tuning.grid_cell_size must be positive")
	}
	if t.Mutation.ScaleMin <= 0 || t.Mutation.ScaleMax < t.Mutation.ScaleMin {
		return fmt.Errorf("config: invalid mutation scale range [%v, %v]", t.Mutation.ScaleMin, t.Mutation.ScaleMax)
	}
	if c.Runner.InitialSpeed <= 0 {
		return errors.New("config: runner.initial_speed must be positive")
	}
	return nil
}

// Validate checks the simulation options.
func (s SimulationConfig) Validate() error {
	switch {
	case s.PopulationSize <= 0:
		return fmt.Errorf("config: population_size must be positive, got %d", s.PopulationSize)
	case math.IsNaN(s.MutationRate) || s.MutationRate < 0 || s.MutationRate > 1:
		return fmt.Errorf("config: mutation_rate must be in [0,1], got %v", s.MutationRate)
	case s.GenerationLimit <= 0:
		return fmt.Errorf("config: generation_limit must be positive, got %d", s.GenerationLimit)
	case !(s.EnvironmentWidth > 0) || !(s.EnvironmentHeight > 0):
		return fmt.Errorf("config: environment must have positive size, got %vx%v", s.EnvironmentWidth, s.EnvironmentHeight)
	case s.FoodAmount < 0:
		return fmt.Errorf("config: food_amount must be >= 0, got %d", s.FoodAmount)
	case s.ObstacleAmount < 0:
		return fmt.Errorf("config: obstacle_amount must be >= 0, got %d", s.ObstacleAmount)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
