// Package sim runs the evolutionary ecosystem: organisms are ark ECS entities
// advanced one discrete tick at a time.
//
// A Simulation is not safe for concurrent Step calls; callers serialize ticks
// per instance. Independent instances may run on separate goroutines.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/environment"
	"github.com/pthm-cable/evolab/genome"
	"github.com/pthm-cable/evolab/systems"
	"github.com/pthm-cable/evolab/telemetry"
)

// Simulation is the aggregate root of one run.
type Simulation struct {
	cfg    config.Config
	rng    *rand.Rand
	logger *slog.Logger
	ctrl   *Controller

	world *ecs.World

	// Entity mapper over all organism components
	mapper *ecs.Map5[
		components.Position,
		components.Rotation,
		components.Energy,
		components.Organism,
		genome.Genome,
	]
	filter *ecs.Filter5[
		components.Position,
		components.Rotation,
		components.Energy,
		components.Organism,
		genome.Genome,
	]

	// Population order; the ECS has no stable iteration order of its own
	order []ecs.Entity

	env        *environment.Environment
	foodGrid   *systems.FoodGrid
	bounds     systems.Bounds
	moveParams systems.MoveParams

	// State
	nextID        uint32
	tick          int64
	generation    int
	generationAge float64
	finished      bool

	history        *telemetry.FitnessHistory
	stats          telemetry.Statistics
	currentBest    *telemetry.Champion
	allTimeBest    *telemetry.Champion
	generationBest *telemetry.Champion

	collector  *telemetry.Collector
	hallOfFame *telemetry.HallOfFame
	perf       *telemetry.PerfCollector

	last *Snapshot
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithController shares c with other simulations instead of a private controller.
func WithController(c *Controller) Option {
	return func(s *Simulation) { s.ctrl = c }
}

// WithRand sets the random source. Two simulations built from equally seeded
// sources and configs evolve identically.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulation) { s.rng = rng }
}

// WithSeed is shorthand for WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// New creates a simulation with a fresh environment and initial population.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:    *cfg,
		world:  world,
		mapper: ecs.NewMap5[components.Position, components.Rotation, components.Energy, components.Organism, genome.Genome](world),
		filter: ecs.NewFilter5[components.Position, components.Rotation, components.Energy, components.Organism, genome.Genome](world),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ctrl == nil {
		s.ctrl = NewController(cfg.Runner.InitialSpeed)
	}

	sc, t := s.cfg.Simulation, s.cfg.Tuning
	s.env = environment.New(s.rng, sc.EnvironmentWidth, sc.EnvironmentHeight, sc.FoodAmount, sc.ObstacleAmount, t)
	s.foodGrid = systems.NewFoodGrid(sc.EnvironmentWidth, sc.EnvironmentHeight, t.GridCellSize)
	s.bounds = systems.Bounds{Width: sc.EnvironmentWidth, Height: sc.EnvironmentHeight}
	s.moveParams = systems.MoveParams{
		MoveCost: t.MoveCost,
		PushPad:  t.ObstaclePushPad,
		Jitter:   t.ObstacleJitter,
	}

	s.history = telemetry.NewFitnessHistory(t.HistoryCapacity)
	s.collector = telemetry.NewCollector()
	s.hallOfFame = telemetry.NewHallOfFame(s.cfg.Telemetry.HallOfFameSize)
	s.perf = telemetry.NewPerfCollector(s.cfg.Telemetry.PerfCollectorWindow)

	s.seedPopulation()
	s.last = s.snapshot(nil, s.ctrl.Speed())

	s.logger.Info("simulation created",
		"population", len(s.order),
		"width", sc.EnvironmentWidth,
		"height", sc.EnvironmentHeight,
		"food", sc.FoodAmount,
		"obstacles", sc.ObstacleAmount,
		"generation_limit", sc.GenerationLimit,
	)
	return s, nil
}

// Step advances the simulation by one tick and returns the resulting snapshot.
// While paused, or once finished, it returns the previous snapshot unchanged.
func (s *Simulation) Step() *Snapshot {
	paused, speed := s.ctrl.State()
	if paused || s.finished {
		return s.last
	}

	s.tick++
	s.generationAge += speed

	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseOrganisms)
	s.foodGrid.Rebuild(s.env.Food)
	// Children appended during the pass wait until the next tick.
	for i, n := 0, len(s.order); i < n; i++ {
		s.updateOrganism(s.order[i], speed)
	}

	s.perf.StartPhase(telemetry.PhaseFood)
	t := s.cfg.Tuning
	if n := s.env.Regenerate(s.rng, speed, t.RegenChance, t.RegenSourceProb); n > 0 {
		s.collector.RecordFoodRegrown(n)
	}

	s.perf.StartPhase(telemetry.PhaseCollisions)
	s.resolveCollisions()

	s.perf.StartPhase(telemetry.PhaseCleanup)
	s.cleanupDead()

	s.perf.StartPhase(telemetry.PhaseTurnover)
	turnover := s.checkTurnover()

	s.perf.StartPhase(telemetry.PhaseStatistics)
	s.updateStatistics()

	s.perf.EndTick()

	if s.generation >= s.cfg.Simulation.GenerationLimit {
		s.finished = true
		s.logger.Info("simulation finished",
			"generation", s.generation,
			"tick", s.tick,
			"best_fitness", s.allTimeBestFitness(),
		)
	}

	s.last = s.snapshot(turnover, speed)
	return s.last
}

// Snapshot returns the snapshot produced by the last tick.
func (s *Simulation) Snapshot() *Snapshot { return s.last }

// TogglePause pauses or resumes this simulation's controller.
func (s *Simulation) TogglePause(paused bool) { s.ctrl.TogglePause(paused) }

// SetSpeed sets the speed multiplier of this simulation's controller.
func (s *Simulation) SetSpeed(speed float64) error { return s.ctrl.SetSpeed(speed) }

// Controller returns the controller this simulation reads each tick.
func (s *Simulation) Controller() *Controller { return s.ctrl }

// Config returns a copy of the configuration the simulation was built with.
func (s *Simulation) Config() config.Config { return s.cfg }

// Finished reports whether the generation limit was reached.
func (s *Simulation) Finished() bool { return s.finished }

// Generation returns the current generation counter.
func (s *Simulation) Generation() int { return s.generation }

// Tick returns the number of ticks executed, pauses excluded.
func (s *Simulation) Tick() int64 { return s.tick }

// HallOfFame returns the run's hall of fame. Callers must not use it
// concurrently with Step.
func (s *Simulation) HallOfFame() *telemetry.HallOfFame { return s.hallOfFame }

// PerfStats returns timing statistics over the recent ticks.
func (s *Simulation) PerfStats() telemetry.PerfStats { return s.perf.Stats() }

func (s *Simulation) allTimeBestFitness() float64 {
	if s.allTimeBest == nil {
		return 0
	}
	return s.allTimeBest.Fitness
}
