package sim

import (
	"github.com/pthm-cable/evolab/environment"
	"github.com/pthm-cable/evolab/telemetry"
)

// Snapshot is an immutable view of a simulation after a tick.
// Nothing in it aliases engine state, so it can be handed to another goroutine
// while the next tick runs.
type Snapshot struct {
	Environment         EnvironmentView           `json:"environment"`
	Population          []telemetry.OrganismState `json:"population"`
	Generation          int                       `json:"generation"`
	Statistics          telemetry.Statistics      `json:"statistics"`
	CurrentBestOrganism *telemetry.Champion       `json:"currentBestOrganism"`
	AllTimeBestOrganism *telemetry.Champion       `json:"allTimeBestOrganism"`
	IsFinished          bool                      `json:"isFinished"`

	Tick          int64             `json:"tick"`
	GenerationAge float64           `json:"generationAge"`
	Speed         float64           `json:"speed"`
	Turnover      *GenerationResult `json:"turnover,omitempty"` // set on the tick a generation ended
}

// EnvironmentView is the renderer-facing copy of the arena.
type EnvironmentView struct {
	Width       float64                  `json:"width"`
	Height      float64                  `json:"height"`
	FoodSources []environment.FoodSource `json:"foodSources"`
	Obstacles   []environment.Obstacle   `json:"obstacles"`
}

// Turnover reasons.
const (
	ReasonExtinct       = "extinct"
	ReasonMaxAge        = "max_age"
	ReasonFoodExhausted = "food_exhausted"
)

// GenerationResult summarises a generation that just ended.
type GenerationResult struct {
	Generation     int                       `json:"generation"`
	BestFitness    float64                   `json:"bestFitness"`
	AverageFitness float64                   `json:"averageFitness"`
	PopulationSize int                       `json:"populationSize"`
	Reason         string                    `json:"reason"`
	Champion       *telemetry.Champion       `json:"champion,omitempty"`
	Stats          telemetry.GenerationStats `json:"stats"`
}

func (s *Simulation) snapshot(turnover *GenerationResult, speed float64) *Snapshot {
	env := s.env.Clone()
	return &Snapshot{
		Environment: EnvironmentView{
			Width:       env.Width,
			Height:      env.Height,
			FoodSources: env.Food,
			Obstacles:   env.Obstacles,
		},
		Population:          s.states(),
		Generation:          s.generation,
		Statistics:          s.stats,
		CurrentBestOrganism: s.currentBest,
		AllTimeBestOrganism: s.allTimeBest,
		IsFinished:          s.finished,
		Tick:                s.tick,
		GenerationAge:       s.generationAge,
		Speed:               speed,
		Turnover:            turnover,
	}
}
