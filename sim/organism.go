package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolab/components"
	"github.com/pthm-cable/evolab/genome"
	"github.com/pthm-cable/evolab/systems"
	"github.com/pthm-cable/evolab/telemetry"
)

// updateOrganism runs one tick of a single organism: marker decay,
// metabolism, foraging or wandering, reproduction and fitness.
func (s *Simulation) updateOrganism(e ecs.Entity, speed float64) {
	t := s.cfg.Tuning
	pos, rot, en, org, g := s.mapper.Get(e)
	if !en.Alive {
		return
	}

	systems.DecayMarker(org, speed)
	if !systems.UpdateEnergy(en, g.Metabolism, t.AgingRate, speed) {
		return
	}

	idx, dist, found := s.foodGrid.Nearest(s.env.Food, pos.X, pos.Y, g.SensorRange)
	switch {
	case found && systems.InEatingRange(dist, g.Size, t.EatMargin):
		systems.Consume(en, org, &s.env.Food[idx])
		s.collector.RecordFoodEaten()
	case found:
		f := &s.env.Food[idx]
		rot.Heading = math.Atan2(f.Y-pos.Y, f.X-pos.X)
		s.move(pos, rot, en, g, speed)
	default:
		if s.rng.Float64() < t.WanderChance {
			rot.Heading += (s.rng.Float64()*2 - 1) * t.WanderAngle
		}
		s.move(pos, rot, en, g, speed)
	}

	var child *newborn
	if en.Value > g.ReproductionThreshold {
		nb := s.reproduce(pos, en, org, g)
		child = &nb
	}

	org.Fitness = systems.Fitness(en, org, t.Fitness)

	// Spawning may move component storage, so it happens last.
	if child != nil {
		s.spawn(*child)
	}
}

func (s *Simulation) move(pos *components.Position, rot *components.Rotation, en *components.Energy, g *genome.Genome, speed float64) {
	res := systems.Move(s.rng, pos, rot, en, g.Speed*speed, g.Radius(), s.bounds, s.env.Obstacles, s.moveParams)
	if res.Reflected {
		s.collector.RecordWallBounce()
	}
	if res.ObstacleHits > 0 {
		s.collector.RecordObstacleHits(res.ObstacleHits)
	}
}

// resolveCollisions separates overlapping pairs among live organisms,
// newborns of this tick included.
func (s *Simulation) resolveCollisions() {
	bodies := make([]systems.Body, 0, len(s.order))
	for _, e := range s.order {
		pos, rot, en, _, g := s.mapper.Get(e)
		if !en.Alive {
			continue
		}
		bodies = append(bodies, systems.Body{Pos: pos, Rot: rot, Radius: g.Radius()})
	}
	if n := systems.ResolveCollisions(s.rng, bodies, s.bounds); n > 0 {
		s.collector.RecordCollisions(n)
	}
}

// updateStatistics refreshes fitness statistics and champions.
// An empty population keeps the previous values.
func (s *Simulation) updateStatistics() {
	if len(s.order) == 0 {
		return
	}

	live := s.states()
	fitness := make([]float64, len(live))
	best := 0
	for i := range live {
		fitness[i] = live[i].Fitness
		if fitness[i] > fitness[best] {
			best = i
		}
	}

	if math.Mod(s.generationAge, float64(s.cfg.Tuning.HistoryInterval)) == 0 {
		s.history.Append(fitness)
	}
	s.stats, _ = telemetry.Aggregate(fitness, s.history)

	champ := live[best]
	s.currentBest = telemetry.NewChampion(champ, telemetry.CurrentBest, s.generation)
	if s.allTimeBest == nil || champ.Fitness > s.allTimeBest.Fitness {
		s.allTimeBest = telemetry.NewChampion(champ, telemetry.AllTimeBest, s.generation)
	}
	if s.generationBest == nil || champ.Fitness > s.generationBest.Fitness {
		s.generationBest = s.currentBest
	}
}

// states copies the population in order.
func (s *Simulation) states() []telemetry.OrganismState {
	out := make([]telemetry.OrganismState, 0, len(s.order))
	for _, e := range s.order {
		out = append(out, organismState(s.mapper.Get(e)))
	}
	return out
}

func organismState(pos *components.Position, rot *components.Rotation, en *components.Energy, org *components.Organism, g *genome.Genome) telemetry.OrganismState {
	return telemetry.OrganismState{
		ID:             org.ID,
		Genome:         *g,
		X:              pos.X,
		Y:              pos.Y,
		Direction:      rot.Heading,
		Energy:         en.Value,
		Age:            en.Age,
		FoodEaten:      org.FoodEaten,
		ChildrenCount:  org.Children,
		IsDead:         !en.Alive,
		Fitness:        org.Fitness,
		JustReproduced: org.ReproMarker,
	}
}
