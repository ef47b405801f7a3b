package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds the summary of one finished generation.
type GenerationStats struct {
	Generation int    `csv:"generation"`
	Tick       int64  `csv:"tick"`
	Reason     string `csv:"reason"`
	Population int    `csv:"population"`

	// Fitness as reported by the statistics aggregator
	BestFitness    float64 `csv:"best_fitness"`
	AverageFitness float64 `csv:"average_fitness"`
	WorstFitness   float64 `csv:"worst_fitness"`

	// Fitness distribution of the surviving population
	FitnessP10 float64 `csv:"fitness_p10"`
	FitnessP50 float64 `csv:"fitness_p50"`
	FitnessP90 float64 `csv:"fitness_p90"`

	EnergyMean float64 `csv:"energy_mean"`

	// Trait means, to follow selection pressure across generations
	SpeedMean       float64 `csv:"speed_mean"`
	SizeMean        float64 `csv:"size_mean"`
	SensorRangeMean float64 `csv:"sensor_range_mean"`
	MetabolismMean  float64 `csv:"metabolism_mean"`

	// Events during the generation
	Births       int `csv:"births"`
	Deaths       int `csv:"deaths"`
	FoodEaten    int `csv:"food_eaten"`
	FoodRegrown  int `csv:"food_regrown"`
	WallBounces  int `csv:"wall_bounces"`
	ObstacleHits int `csv:"obstacle_hits"`
	Collisions   int `csv:"collisions"`

	ChampionID      uint32  `csv:"champion_id"`
	ChampionFitness float64 `csv:"champion_fitness"`
}

// Percentile returns the empirical p-quantile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ComputeDistribution calculates mean and percentiles of values.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int64("tick", s.Tick),
		slog.String("reason", s.Reason),
		slog.Int("population", s.Population),
		slog.Float64("best_fitness", s.BestFitness),
		slog.Float64("average_fitness", s.AverageFitness),
		slog.Float64("worst_fitness", s.WorstFitness),
		slog.Float64("fitness_p50", s.FitnessP50),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("size_mean", s.SizeMean),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("food_eaten", s.FoodEaten),
		slog.Int("collisions", s.Collisions),
	)
}

