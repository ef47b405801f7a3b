package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pthm-cable/evolab/environment"
	"github.com/pthm-cable/evolab/sim"
	"github.com/pthm-cable/evolab/telemetry"
)

// value gathers the registry and returns the value of the named series whose
// labels include want.
func value(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue series
				}
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("series %s%v not found", name, want)
	return 0
}

func testSnapshot() *sim.Snapshot {
	return &sim.Snapshot{
		Environment: sim.EnvironmentView{
			FoodSources: []environment.FoodSource{{ID: 0}, {ID: 1, Consumed: true}, {ID: 2}},
		},
		Population:          make([]telemetry.OrganismState, 4),
		Generation:          3,
		Statistics:          telemetry.Statistics{Best: 90, Average: 40, Worst: 5},
		AllTimeBestOrganism: &telemetry.Champion{OrganismState: telemetry.OrganismState{Fitness: 120}},
		Tick:                77,
		Speed:               2,
	}
}

func TestObserve_Gauges(t *testing.T) {
	m := New("test")
	m.Observe(testSnapshot())

	run := map[string]string{"run": "test"}
	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"evolab_tick", run, 77},
		{"evolab_generation", run, 3},
		{"evolab_population", run, 4},
		{"evolab_food_available", run, 2},
		{"evolab_speed", run, 2},
		{"evolab_all_time_best_fitness", run, 120},
		{"evolab_fitness", map[string]string{"stat": "best"}, 90},
		{"evolab_fitness", map[string]string{"stat": "average"}, 40},
		{"evolab_fitness", map[string]string{"stat": "worst"}, 5},
	}
	for _, tt := range tests {
		if got := value(t, m, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %f, want %f", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestObserve_TurnoverCounters(t *testing.T) {
	m := New("test")

	snap := testSnapshot()
	snap.Turnover = &sim.GenerationResult{
		Reason: sim.ReasonMaxAge,
		Stats:  telemetry.GenerationStats{Births: 4, Deaths: 6, FoodEaten: 11},
	}
	m.Observe(snap)
	m.Observe(snap)

	// ticks without turnover leave the counters alone
	m.Observe(testSnapshot())

	if got := value(t, m, "evolab_generations_total", map[string]string{"reason": sim.ReasonMaxAge}); got != 2 {
		t.Errorf("generations_total = %f, want 2", got)
	}
	if got := value(t, m, "evolab_births_total", nil); got != 8 {
		t.Errorf("births_total = %f, want 8", got)
	}
	if got := value(t, m, "evolab_deaths_total", nil); got != 12 {
		t.Errorf("deaths_total = %f, want 12", got)
	}
	if got := value(t, m, "evolab_food_eaten_total", nil); got != 22 {
		t.Errorf("food_eaten_total = %f, want 22", got)
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.Observe(testSnapshot())
	m.RecordFailure()
}

func TestHandler(t *testing.T) {
	m := New("served")
	m.Observe(testSnapshot())
	m.RecordFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`evolab_generation{run="served"} 3`,
		`evolab_sink_failures_total{run="served"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
