package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pthm-cable/evolab/genome"
)

// HallEntry represents a successful organism's genome and fitness.
type HallEntry struct {
	ID         uint32        `json:"id"`
	Generation int           `json:"generation"`
	Fitness    float64       `json:"fitness"`
	Age        float64       `json:"age"`
	FoodEaten  int           `json:"food_eaten"`
	Children   int           `json:"children"`
	Genome     genome.Genome `json:"genome"`
}

// EntryOf builds a hall entry from an organism snapshot.
func EntryOf(o OrganismState, generation int) HallEntry {
	return HallEntry{
		ID:         o.ID,
		Generation: generation,
		Fitness:    o.Fitness,
		Age:        o.Age,
		FoodEaten:  o.FoodEaten,
		Children:   o.ChildrenCount,
		Genome:     o.Genome,
	}
}

// HallOfFame keeps the fittest organisms seen during a run, best first.
// An organism appears at most once; reconsidering it keeps its best score.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider evaluates an organism for entry.
// Returns true if the hall changed.
func (hof *HallOfFame) Consider(entry HallEntry) bool {
	for i := range hof.entries {
		if hof.entries[i].ID != entry.ID {
			continue
		}
		if entry.Fitness <= hof.entries[i].Fitness {
			return false
		}
		hof.entries = append(hof.entries[:i], hof.entries[i+1:]...)
		break
	}

	hof.entries = hof.insertEntry(hof.entries, entry)
	return hof.contains(entry)
}

func (hof *HallOfFame) contains(entry HallEntry) bool {
	for i := range hof.entries {
		if hof.entries[i] == entry {
			return true
		}
	}
	return false
}

// insertEntry adds an entry to the hall, maintaining sorted order by fitness.
// If the hall is full, the lowest-fitness entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	// Find insertion point (sorted descending by fitness)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}

	return hall
}

// Entries returns a copy of the hall, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	out := make([]HallEntry, len(hof.entries))
	copy(out, hof.entries)
	return out
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int { return len(hof.entries) }

// TopFitness returns the highest fitness in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(struct {
		Capacity int         `json:"capacity"`
		Entries  []HallEntry `json:"entries"`
	}{hof.maxSize, hof.entries}, "", "  ")
}

// LoadHallOfFameFromFile reads a hall of fame JSON file.
func LoadHallOfFameFromFile(path string) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var raw struct {
		Capacity int         `json:"capacity"`
		Entries  []HallEntry `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	hof := NewHallOfFame(max(raw.Capacity, len(raw.Entries)))
	for _, e := range raw.Entries {
		hof.Consider(e)
	}
	return hof, nil
}
