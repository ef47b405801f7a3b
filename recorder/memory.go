package recorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/evolab/config"
)

var _ Recorder = (*Memory)(nil)

// Memory is an in-process Recorder for tests and ephemeral runs.
type Memory struct {
	mu          sync.RWMutex
	runs        map[string]Run
	generations map[string]Generation
	organisms   map[string]Organism
	now         func() time.Time
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{
		runs:        make(map[string]Run),
		generations: make(map[string]Generation),
		organisms:   make(map[string]Organism),
		now:         time.Now,
	}
}

// SaveRun records a new run and returns its id.
func (m *Memory) SaveRun(ctx context.Context, name string, cfg config.SimulationConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[id] = Run{ID: id, Name: name, Created: m.now(), Config: cfg}
	return id, nil
}

// SaveGeneration records a generation result under runID.
func (m *Memory) SaveGeneration(ctx context.Context, runID string, g Generation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return "", fmt.Errorf("saving generation for run %s: %w", runID, ErrNotFound)
	}
	g.ID = uuid.NewString()
	g.RunID = runID
	g.Created = m.now()
	m.generations[g.ID] = g
	return g.ID, nil
}

// SaveOrganism records a notable organism of a generation.
func (m *Memory) SaveOrganism(ctx context.Context, runID, generationID string, o Organism) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.generations[generationID]
	if !ok || g.RunID != runID {
		return "", fmt.Errorf("saving organism for generation %s: %w", generationID, ErrNotFound)
	}
	o.ID = uuid.NewString()
	o.RunID = runID
	o.GenerationID = generationID
	m.organisms[o.ID] = o
	return o.ID, nil
}

// ListRuns returns every run, newest first. Runs created at the same instant
// are ordered by name.
func (m *Memory) ListRuns(ctx context.Context) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// RunDetails returns a run and its generations ordered by generation number.
func (m *Memory) RunDetails(ctx context.Context, runID string) (RunDetails, error) {
	if err := ctx.Err(); err != nil {
		return RunDetails{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[runID]
	if !ok {
		return RunDetails{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	d := RunDetails{Run: r, Generations: []Generation{}}
	for _, g := range m.generations {
		if g.RunID == runID {
			d.Generations = append(d.Generations, g)
		}
	}
	sort.Slice(d.Generations, func(i, j int) bool {
		return d.Generations[i].Number < d.Generations[j].Number
	})
	return d, nil
}

// BestOrganisms returns up to limit organisms of a generation, fittest first.
// A limit of zero or less returns all of them.
func (m *Memory) BestOrganisms(ctx context.Context, generationID string, limit int) ([]Organism, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if _, ok := m.generations[generationID]; !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("generation %s: %w", generationID, ErrNotFound)
	}
	out := []Organism{}
	for _, o := range m.organisms {
		if o.GenerationID == generationID {
			out = append(out, o)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Fitness > out[j].Fitness })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
