package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/evolab/genome"
)

func TestCollector_FlushResetsCounters(t *testing.T) {
	c := NewCollector()
	c.RecordBirth()
	c.RecordBirth()
	c.RecordDeath()
	c.RecordFoodEaten()
	c.RecordFoodRegrown(3)
	c.RecordWallBounce()
	c.RecordObstacleHits(2)
	c.RecordCollisions(4)

	want := GenerationCounters{Births: 2, Deaths: 1, FoodEaten: 1, FoodRegrown: 3, WallBounces: 1, ObstacleHits: 2, Collisions: 4}
	if got := c.Counts(); got != want {
		t.Fatalf("Counts() = %+v, want %+v", got, want)
	}

	live := []OrganismState{
		{ID: 1, Fitness: 10, Energy: 40, Genome: genome.Genome{Speed: 1, Size: 6}},
		{ID: 2, Fitness: 30, Energy: 60, Genome: genome.Genome{Speed: 2, Size: 10}},
	}
	champ := NewChampion(live[1], CurrentBest, 3)
	gs := c.Flush(3, 1200, "max_age", live, Statistics{Best: 30, Average: 20, Worst: 10}, champ)

	if gs.Generation != 3 || gs.Tick != 1200 || gs.Reason != "max_age" || gs.Population != 2 {
		t.Errorf("unexpected header fields: %+v", gs)
	}
	if gs.Births != 2 || gs.Collisions != 4 || gs.FoodRegrown != 3 {
		t.Errorf("counters not carried into stats: %+v", gs)
	}
	if math.Abs(gs.EnergyMean-50) > 1e-9 || math.Abs(gs.SpeedMean-1.5) > 1e-9 || math.Abs(gs.SizeMean-8) > 1e-9 {
		t.Errorf("unexpected means: energy %v speed %v size %v", gs.EnergyMean, gs.SpeedMean, gs.SizeMean)
	}
	if gs.ChampionID != 2 || gs.ChampionFitness != 30 {
		t.Errorf("champion = (%d, %v), want (2, 30)", gs.ChampionID, gs.ChampionFitness)
	}

	if got := c.Counts(); got != (GenerationCounters{}) {
		t.Errorf("counters not reset after flush: %+v", got)
	}
}

func TestCollector_FlushEmptyPopulation(t *testing.T) {
	c := NewCollector()
	c.RecordDeath()

	gs := c.Flush(0, 10, "extinct", nil, Statistics{}, nil)

	if gs.Population != 0 || gs.EnergyMean != 0 || gs.ChampionID != 0 {
		t.Errorf("unexpected stats for empty population: %+v", gs)
	}
	if gs.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", gs.Deaths)
	}
}
