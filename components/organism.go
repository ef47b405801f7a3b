package components

// Energy tracks an entity's metabolic state.
// Value may go negative; the organism is marked dead at the next metabolism check.
type Energy struct {
	Value float64
	Age   float64 // speed-scaled ticks alive
	Alive bool
}

// Organism bundles identity and lifetime counters.
type Organism struct {
	ID          uint32
	FoodEaten   int
	Children    int
	Fitness     float64
	ReproMarker float64 // ticks remaining on the just-reproduced marker
}
