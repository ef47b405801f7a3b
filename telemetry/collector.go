package telemetry

import "gonum.org/v1/gonum/stat"

// GenerationCounters holds event counts accumulated over one generation.
type GenerationCounters struct {
	Births       int `json:"births"`
	Deaths       int `json:"deaths"`
	FoodEaten    int `json:"foodEaten"`
	FoodRegrown  int `json:"foodRegrown"`
	WallBounces  int `json:"wallBounces"`
	ObstacleHits int `json:"obstacleHits"`
	Collisions   int `json:"collisions"`
}

// Collector accumulates events within a generation and produces GenerationStats.
type Collector struct {
	counts GenerationCounters
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth() { c.counts.Births++ }

// RecordDeath records a death event.
func (c *Collector) RecordDeath() { c.counts.Deaths++ }

// RecordFoodEaten records a consumed food source.
func (c *Collector) RecordFoodEaten() { c.counts.FoodEaten++ }

// RecordFoodRegrown records n revived food sources.
func (c *Collector) RecordFoodRegrown(n int) { c.counts.FoodRegrown += n }

// RecordWallBounce records a reflection off the arena boundary.
func (c *Collector) RecordWallBounce() { c.counts.WallBounces++ }

// RecordObstacleHits records n obstacle pushes.
func (c *Collector) RecordObstacleHits(n int) { c.counts.ObstacleHits += n }

// RecordCollisions records n resolved organism pairs.
func (c *Collector) RecordCollisions(n int) { c.counts.Collisions += n }

// Counts returns the counters of the current generation.
func (c *Collector) Counts() GenerationCounters { return c.counts }

// Flush produces the GenerationStats of the generation that just ended and
// resets counters for the next one. The caller must provide:
// - generation, tick, reason: which generation ended, when, and why
// - live: the population at turnover
// - stats: the last aggregated fitness statistics
// - champion: the best organism of the generation, may be nil
func (c *Collector) Flush(
	generation int,
	tick int64,
	reason string,
	live []OrganismState,
	stats Statistics,
	champion *Champion,
) GenerationStats {
	n := len(live)
	fitness := make([]float64, n)
	energy := make([]float64, n)
	speed := make([]float64, n)
	size := make([]float64, n)
	sensor := make([]float64, n)
	metabolism := make([]float64, n)
	for i := range live {
		fitness[i] = live[i].Fitness
		energy[i] = live[i].Energy
		speed[i] = live[i].Genome.Speed
		size[i] = live[i].Genome.Size
		sensor[i] = live[i].Genome.SensorRange
		metabolism[i] = live[i].Genome.Metabolism
	}

	_, p10, p50, p90 := ComputeDistribution(fitness)

	gs := GenerationStats{
		Generation: generation,
		Tick:       tick,
		Reason:     reason,
		Population: n,

		BestFitness:    stats.Best,
		AverageFitness: stats.Average,
		WorstFitness:   stats.Worst,

		FitnessP10: p10,
		FitnessP50: p50,
		FitnessP90: p90,

		EnergyMean:      mean(energy),
		SpeedMean:       mean(speed),
		SizeMean:        mean(size),
		SensorRangeMean: mean(sensor),
		MetabolismMean:  mean(metabolism),

		Births:       c.counts.Births,
		Deaths:       c.counts.Deaths,
		FoodEaten:    c.counts.FoodEaten,
		FoodRegrown:  c.counts.FoodRegrown,
		WallBounces:  c.counts.WallBounces,
		ObstacleHits: c.counts.ObstacleHits,
		Collisions:   c.counts.Collisions,
	}
	if champion != nil {
		gs.ChampionID = champion.ID
		gs.ChampionFitness = champion.Fitness
	}

	c.counts = GenerationCounters{}
	return gs
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return stat.Mean(v, nil)
}
