package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/evolab/genome"
)

// OrganismState is a read-only copy of one organism as renderers see it.
type OrganismState struct {
	ID             uint32        `json:"id"`
	Genome         genome.Genome `json:"genome"`
	X              float64       `json:"x"`
	Y              float64       `json:"y"`
	Direction      float64       `json:"direction"`
	Energy         float64       `json:"energy"`
	Age            float64       `json:"age"`
	FoodEaten      int           `json:"foodEaten"`
	ChildrenCount  int           `json:"childrenCount"`
	IsDead         bool          `json:"isDead"`
	Fitness        float64       `json:"fitness"`
	JustReproduced float64       `json:"justReproduced"`
}

// ChampionKind tags a champion snapshot.
type ChampionKind string

const (
	CurrentBest ChampionKind = "current_best"
	AllTimeBest ChampionKind = "all_time_best"
)

// Champion is an organism frozen at the moment it was recorded as best.
type Champion struct {
	OrganismState
	Kind       ChampionKind `json:"kind"`
	Generation int          `json:"generation"`
}

// NewChampion snapshots o with the given tag.
func NewChampion(o OrganismState, kind ChampionKind, generation int) *Champion {
	return &Champion{OrganismState: o, Kind: kind, Generation: generation}
}

// SaveJSON writes v as indented JSON to dir/name and returns the path.
func SaveJSON(v any, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return path, nil
}
