// Package recorder persists run history: runs, per-generation results and
// notable organisms. The engine never calls it; the runner does.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/genome"
)

// ErrNotFound is returned when a run or generation id is unknown.
var ErrNotFound = errors.New("recorder: not found")

// Run is a recorded simulation run.
type Run struct {
	ID      string                  `json:"id"`
	Name    string                  `json:"name"`
	Created time.Time               `json:"dateCreated"`
	Config  config.SimulationConfig `json:"config"`
}

// Generation is the recorded result of one ended generation.
type Generation struct {
	ID             string    `json:"id"`
	RunID          string    `json:"simulationId"`
	Number         int       `json:"generation"`
	BestFitness    float64   `json:"bestFitness"`
	AverageFitness float64   `json:"averageFitness"`
	PopulationSize int       `json:"populationSize"`
	Created        time.Time `json:"dateCreated"`
}

// Organism is a recorded notable organism.
type Organism struct {
	ID           string        `json:"id"`
	RunID        string        `json:"simulationId"`
	GenerationID string        `json:"generationId"`
	Genome       genome.Genome `json:"genome"`
	Fitness      float64       `json:"fitness"`
}

// RunDetails is a run together with its generations in generation order.
type RunDetails struct {
	Run
	Generations []Generation `json:"generations"`
}

// Recorder stores run history. Implementations must be safe for concurrent use.
type Recorder interface {
	SaveRun(ctx context.Context, name string, cfg config.SimulationConfig) (string, error)
	SaveGeneration(ctx context.Context, runID string, g Generation) (string, error)
	SaveOrganism(ctx context.Context, runID, generationID string, o Organism) (string, error)

	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]Run, error)
	RunDetails(ctx context.Context, runID string) (RunDetails, error)
	// BestOrganisms returns up to limit organisms of a generation, fittest first.
	BestOrganisms(ctx context.Context, generationID string, limit int) ([]Organism, error)
}
