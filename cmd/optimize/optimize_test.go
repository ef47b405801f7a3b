package main

import (
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/sim"
	"github.com/pthm-cable/evolab/telemetry"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParamVector_DefaultsMatchConfig(t *testing.T) {
	pv := NewParamVector()
	got := pv.ExtractFromConfig(config.Default())
	want := pv.DefaultVector()

	if len(got) != pv.Dim() {
		t.Fatalf("extracted %d values, want %d", len(got), pv.Dim())
	}
	for i, spec := range pv.Specs {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("%s: config default %f, spec default %f", spec.Name, got[i], want[i])
		}
	}
}

func TestParamVector_NormalizeRoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: %f -> %f", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVector_ApplyClamps(t *testing.T) {
	pv := NewParamVector()
	cfg := config.Default()

	over := make([]float64, pv.Dim())
	for i, spec := range pv.Specs {
		over[i] = spec.Max * 10
	}
	pv.ApplyToConfig(cfg, over)

	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s = %f, want clamped to %f", spec.Name, got[i], spec.Max)
		}
	}
	if math.Abs(cfg.Tuning.ParentEnergyKeep+cfg.Tuning.ChildEnergyShare-1) > 1e-12 {
		t.Errorf("energy split does not sum to 1: %f + %f", cfg.Tuning.ParentEnergyKeep, cfg.Tuning.ChildEnergyShare)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("clamped config invalid: %v", err)
	}
}

func TestComputeQuality(t *testing.T) {
	gen := func(avg float64, pop int, reason string) *sim.GenerationResult {
		return &sim.GenerationResult{AverageFitness: avg, PopulationSize: pop, Reason: reason}
	}

	tests := []struct {
		name string
		gens []*sim.GenerationResult
		want float64
	}{
		{"too few generations", []*sim.GenerationResult{gen(1, 10, sim.ReasonMaxAge)}, 0},
		{
			"steady improvement",
			[]*sim.GenerationResult{gen(1, 10, sim.ReasonMaxAge), gen(2, 10, sim.ReasonMaxAge), gen(3, 10, sim.ReasonMaxAge)},
			1,
		},
		{
			"extinct and no progress",
			[]*sim.GenerationResult{gen(5, 10, sim.ReasonMaxAge), gen(1, 0, sim.ReasonExtinct), gen(1, 0, sim.ReasonExtinct)},
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeQuality(tt.gens); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("computeQuality = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestEvaluate_ShortRun(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.GenerationLimit = 2
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 200, []int64{1, 2}, cfg)

	e := fe.Evaluate(pv.DefaultVector())
	if e.Fitness > 0 {
		t.Errorf("fitness = %f, want at most 0", e.Fitness)
	}
	if e.Champion < 0 {
		t.Errorf("champion = %f, want at least 0", e.Champion)
	}
	if e.Quality < 0 || e.Quality > 1 {
		t.Errorf("quality %f outside [0, 1]", e.Quality)
	}
	if math.Abs(e.Fitness-computeFitness(e.Champion, e.Quality)) > math.Abs(e.Fitness)*0.2+1e-9 {
		t.Errorf("fitness %f far from champion %f", e.Fitness, e.Champion)
	}

	run := fe.BestRun()
	if run == nil || run.HallOfFame == nil {
		t.Fatal("best run not tracked")
	}
	if run.Seed != 1 && run.Seed != 2 {
		t.Errorf("best run seed %d is not an evaluation seed", run.Seed)
	}
}

// fakeEvaluate scores a vector by its first parameter, lower mutation rate
// being better.
func fakeEvaluate(x []float64) Evaluation {
	return Evaluation{Fitness: x[0], Champion: 100 - x[0], Quality: 0.5}
}

func TestSearch_TracksBest(t *testing.T) {
	pv := NewParamVector()
	s := newSearch(pv, fakeEvaluate, config.Default(), nil, quietLogger, 3)

	low := pv.Normalize(pv.DefaultVector())
	high := append([]float64(nil), low...)
	high[0] = 0.9
	low[0] = 0.1

	for _, x := range [][]float64{high, low, high} {
		s.objective(x)
	}

	if s.evals != 3 {
		t.Errorf("evals = %d, want 3", s.evals)
	}
	if s.best == nil || s.best.eval != 2 {
		t.Fatalf("best = %+v, want the second evaluation", s.best)
	}
	if want := pv.Denormalize(low)[0]; math.Abs(s.best.params[0]-want) > 1e-12 {
		t.Errorf("best mutation rate = %f, want %f", s.best.params[0], want)
	}
}

func TestSearch_BestConfigKeepsBaseOverrides(t *testing.T) {
	base := config.Default()
	base.Simulation.PopulationSize = 7
	base.Tuning.AgingRate = 2.5

	pv := NewParamVector()
	s := newSearch(pv, fakeEvaluate, base, nil, quietLogger, 1)
	x := pv.Normalize(pv.DefaultVector())
	x[0] = 0.2
	s.objective(x)

	got := s.bestConfig(nil)
	if got.Simulation.PopulationSize != 7 || got.Tuning.AgingRate != 2.5 {
		t.Errorf("base overrides lost: population %d, aging rate %f", got.Simulation.PopulationSize, got.Tuning.AgingRate)
	}
	if math.Abs(got.Simulation.MutationRate-s.best.params[0]) > 1e-12 {
		t.Errorf("mutation rate = %f, want best %f", got.Simulation.MutationRate, s.best.params[0])
	}
	if base.Simulation.MutationRate != config.Default().Simulation.MutationRate {
		t.Error("bestConfig modified the base config")
	}
}

func TestSearch_WritesEvaluationLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimize_log.csv")
	evalLog, err := createEvalLog(path)
	if err != nil {
		t.Fatal(err)
	}

	pv := NewParamVector()
	s := newSearch(pv, fakeEvaluate, config.Default(), evalLog, quietLogger, 2)
	x := pv.Normalize(pv.DefaultVector())
	s.objective(x)
	x[1] = 2 // food_energy above its bounds, logged clamped
	s.objective(x)
	if err := evalLog.Close(); err != nil {
		t.Fatal(err)
	}

	var rows []evalRecord
	if err := gocsv.UnmarshalFile(mustOpen(t, path), &rows); err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("log has %d rows, want 2", len(rows))
	}
	if rows[0].Eval != 1 || rows[1].Eval != 2 {
		t.Errorf("eval numbers = %d, %d", rows[0].Eval, rows[1].Eval)
	}
	if rows[1].FoodEnergy != pv.Specs[1].Max {
		t.Errorf("food_energy logged as %f, want clamped %f", rows[1].FoodEnergy, pv.Specs[1].Max)
	}
	if rows[0].Champion != 100-rows[0].MutationRate {
		t.Errorf("champion column %f does not match evaluation", rows[0].Champion)
	}
}

func TestEvalRecord_HasColumnPerParam(t *testing.T) {
	out, err := gocsv.MarshalString([]evalRecord{{}})
	if err != nil {
		t.Fatal(err)
	}
	header := strings.Split(strings.SplitN(out, "\n", 2)[0], ",")
	cols := map[string]bool{}
	for _, h := range header {
		cols[h] = true
	}
	for _, spec := range NewParamVector().Specs {
		if !cols[spec.Name] {
			t.Errorf("optimize log has no %s column", spec.Name)
		}
	}
}

func TestSaveResults(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	base := config.Default()
	base.Simulation.GenerationLimit = 2
	base.Simulation.PopulationSize = 6
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 200, []int64{3}, base)
	fe.Evaluate(pv.DefaultVector())

	s := newSearch(pv, fe.Evaluate, base, nil, quietLogger, 1)
	best := s.bestConfig(pv.DefaultVector())
	if err := saveResults(om, &best, fe.BestRun()); err != nil {
		t.Fatalf("saveResults: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"config.yaml", "hall_of_fame.json", "generations.csv", "perf.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.Simulation.PopulationSize != 6 {
		t.Errorf("saved population size = %d, want the base override 6", loaded.Simulation.PopulationSize)
	}
}

func TestSaveResults_NoRun(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	if err := saveResults(om, config.Default(), nil); err != nil {
		t.Fatalf("saveResults: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "hall_of_fame.json")); !os.IsNotExist(err) {
		t.Errorf("hall of fame written without a run: %v", err)
	}
}

func TestEvalSeeds(t *testing.T) {
	got := evalSeeds(3)
	want := []int64{42, 1042, 2042}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("seed %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Second, "1m30s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
