package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/genome"
	"github.com/pthm-cable/evolab/systems"
	"github.com/pthm-cable/evolab/telemetry"
)

// newborn holds the state of an organism waiting to be spawned.
type newborn struct {
	pos    components.Position
	rot    components.Rotation
	energy float64
	marker float64
	genome genome.Genome
}

// seedPopulation spawns a fresh random population, unrelated to any earlier genome.
func (s *Simulation) seedPopulation() {
	t := s.cfg.Tuning
	for i := 0; i < s.cfg.Simulation.PopulationSize; i++ {
		g := genome.Random(s.rng, t.Traits)
		r := g.Radius()
		s.spawn(newborn{
			pos: components.Position{
				X: spawnCoord(s.rng.Float64(), r, s.bounds.Width),
				Y: spawnCoord(s.rng.Float64(), r, s.bounds.Height),
			},
			rot:    components.Rotation{Heading: s.rng.Float64() * 2 * math.Pi},
			energy: t.InitialEnergy,
			genome: g,
		})
	}
}

// spawnCoord maps u in [0,1) to a coordinate keeping a body of radius r inside [0, limit].
func spawnCoord(u, r, limit float64) float64 {
	if 2*r >= limit {
		return limit / 2
	}
	return r + u*(limit-2*r)
}

// spawn creates an organism entity and appends it to the population.
// Ids are never reused.
func (s *Simulation) spawn(nb newborn) ecs.Entity {
	id := s.nextID
	s.nextID++

	pos := nb.pos
	rot := nb.rot
	energy := components.Energy{Value: nb.energy, Alive: true}
	org := components.Organism{ID: id, ReproMarker: nb.marker}
	g := nb.genome

	e := s.mapper.NewEntity(&pos, &rot, &energy, &org, &g)
	s.order = append(s.order, e)
	return e
}

// reproduce splits the parent's energy with a mutated child placed near it.
// The child is returned rather than spawned so that component pointers the
// caller holds stay valid until it is done with them.
func (s *Simulation) reproduce(pos *components.Position, en *components.Energy, org *components.Organism, g *genome.Genome) newborn {
	t := s.cfg.Tuning

	child := newborn{
		genome: g.Mutate(s.rng, s.cfg.Simulation.MutationRate, t.Mutation),
		energy: en.Value * t.ChildEnergyShare,
		marker: t.ReproMarkerTicks,
	}
	child.pos = components.Position{
		X: pos.X + (s.rng.Float64()*2-1)*t.SpawnOffset,
		Y: pos.Y + (s.rng.Float64()*2-1)*t.SpawnOffset,
	}
	systems.ClampToBounds(&child.pos, child.genome.Radius(), s.bounds)
	child.rot = components.Rotation{Heading: s.rng.Float64() * 2 * math.Pi}

	en.Value *= t.ParentEnergyKeep
	org.Children++
	org.ReproMarker = t.ReproMarkerTicks

	s.collector.RecordBirth()
	return child
}

// cleanupDead removes dead entities, offering each to the hall of fame first.
func (s *Simulation) cleanupDead() {
	// First pass: collect dead entities (must complete before modifying)
	var toRemove []ecs.Entity

	query := s.filter.Query()
	for query.Next() {
		pos, rot, en, org, g := query.Get()
		if en.Alive {
			continue
		}
		toRemove = append(toRemove, query.Entity())
		s.hallOfFame.Consider(telemetry.EntryOf(organismState(pos, rot, en, org, g), s.generation))
	}

	if len(toRemove) == 0 {
		return
	}

	// Second pass: remove entities (query iteration complete)
	for _, e := range toRemove {
		s.world.RemoveEntity(e)
		s.collector.RecordDeath()
	}

	live := s.order[:0]
	for _, e := range s.order {
		if s.world.Alive(e) {
			live = append(live, e)
		}
	}
	clear(s.order[len(live):])
	s.order = live
}

// checkTurnover starts a new generation when the population died out, the
// generation grew too old, or most of the food is gone. Returns the record
// of the generation that ended, or nil.
func (s *Simulation) checkTurnover() *GenerationResult {
	t := s.cfg.Tuning

	var reason string
	switch {
	case len(s.order) == 0:
		reason = ReasonExtinct
	case s.generationAge >= t.GenerationMaxAge:
		reason = ReasonMaxAge
	case s.env.ConsumedRatio() > t.FoodExhaustion:
		reason = ReasonFoodExhausted
	default:
		return nil
	}

	live := s.states()
	for _, o := range live {
		s.hallOfFame.Consider(telemetry.EntryOf(o, s.generation))
	}

	result := &GenerationResult{
		Generation:     s.generation,
		BestFitness:    s.stats.Best,
		AverageFitness: s.stats.Average,
		PopulationSize: len(live),
		Reason:         reason,
		Champion:       s.generationBest,
		Stats:          s.collector.Flush(s.generation, s.tick, reason, live, s.stats, s.generationBest),
	}

	s.generation++
	s.history.Reset()
	s.generationAge = 0
	s.generationBest = nil

	if len(s.order) == 0 {
		s.seedPopulation()
	} else {
		s.env.ResetFood(s.rng)
	}

	s.logger.Info("generation",
		"ended", result.Generation,
		"reason", reason,
		"best_fitness", result.BestFitness,
		"average_fitness", result.AverageFitness,
		"survivors", result.PopulationSize,
		"population", len(s.order),
	)
	return result
}
