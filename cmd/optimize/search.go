package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/telemetry"
)

// evalRecord is one row of optimize_log.csv. Parameter columns hold the
// clamped values the simulations actually ran with.
type evalRecord struct {
	Eval     int     `csv:"eval"`
	Fitness  float64 `csv:"fitness"`
	Champion float64 `csv:"champion"`
	Quality  float64 `csv:"quality"`

	MutationRate     float64 `csv:"mutation_rate"`
	FoodEnergy       float64 `csv:"food_energy"`
	MoveCost         float64 `csv:"move_cost"`
	RegenChance      float64 `csv:"regen_chance"`
	RegenSourceProb  float64 `csv:"regen_source_prob"`
	ChildEnergyShare float64 `csv:"child_energy_share"`
	SpawnOffset      float64 `csv:"spawn_offset"`
	WanderChance     float64 `csv:"wander_chance"`
	EatMargin        float64 `csv:"eat_margin"`
}

func newEvalRecord(n int, e Evaluation, cfg *config.Config) evalRecord {
	return evalRecord{
		Eval:             n,
		Fitness:          e.Fitness,
		Champion:         e.Champion,
		Quality:          e.Quality,
		MutationRate:     cfg.Simulation.MutationRate,
		FoodEnergy:       cfg.Tuning.FoodEnergy,
		MoveCost:         cfg.Tuning.MoveCost,
		RegenChance:      cfg.Tuning.RegenChance,
		RegenSourceProb:  cfg.Tuning.RegenSourceProb,
		ChildEnergyShare: cfg.Tuning.ChildEnergyShare,
		SpawnOffset:      cfg.Tuning.SpawnOffset,
		WanderChance:     cfg.Tuning.WanderChance,
		EatMargin:        cfg.Tuning.EatMargin,
	}
}

// evalLog appends evaluation records to a CSV file.
type evalLog struct {
	f             *os.File
	headerWritten bool
}

func createEvalLog(path string) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating evaluation log: %w", err)
	}
	return &evalLog{f: f}, nil
}

func (l *evalLog) Write(rec evalRecord) error {
	records := []evalRecord{rec}
	if !l.headerWritten {
		l.headerWritten = true
		return gocsv.Marshal(records, l.f)
	}
	return gocsv.MarshalWithoutHeaders(records, l.f)
}

func (l *evalLog) Close() error { return l.f.Close() }

// candidate is an evaluated parameter vector.
type candidate struct {
	eval   int
	score  Evaluation
	params []float64 // raw, clamped
}

// search adapts the evaluator to the optimizer's objective function and
// tracks the best candidate it has seen.
type search struct {
	params   *ParamVector
	evaluate func([]float64) Evaluation
	base     config.Config
	log      *evalLog
	logger   *slog.Logger
	maxEvals int

	evals   int
	best    *candidate
	started time.Time
}

func newSearch(params *ParamVector, evaluate func([]float64) Evaluation, base *config.Config, log *evalLog, logger *slog.Logger, maxEvals int) *search {
	return &search{
		params:   params,
		evaluate: evaluate,
		base:     *base,
		log:      log,
		logger:   logger,
		maxEvals: maxEvals,
		started:  time.Now(),
	}
}

// objective takes a normalized vector and returns its fitness.
func (s *search) objective(x []float64) float64 {
	raw := s.params.Clamp(s.params.Denormalize(x))
	e := s.evaluate(raw)
	s.evals++

	if s.best == nil || e.Fitness < s.best.score.Fitness {
		s.best = &candidate{eval: s.evals, score: e, params: raw}
	}

	if s.log != nil {
		cfg := s.base
		s.params.ApplyToConfig(&cfg, raw)
		if err := s.log.Write(newEvalRecord(s.evals, e, &cfg)); err != nil {
			s.logger.Error("writing evaluation log", "eval", s.evals, "error", err)
		}
	}

	elapsed := time.Since(s.started)
	remaining := time.Duration(s.maxEvals-s.evals) * (elapsed / time.Duration(s.evals))
	s.logger.Info("evaluation",
		"eval", s.evals,
		"of", s.maxEvals,
		"champion", e.Champion,
		"quality", e.Quality,
		"best_champion", s.best.score.Champion,
		"elapsed", formatDuration(elapsed),
		"eta", formatDuration(max(remaining, 0)),
	)

	return e.Fitness
}

// bestConfig returns the base config with the best parameters applied.
// The base is copied, so overrides from the loaded config file survive.
func (s *search) bestConfig(fallback []float64) config.Config {
	cfg := s.base
	params := fallback
	if s.best != nil {
		params = s.best.params
	}
	s.params.ApplyToConfig(&cfg, params)
	return cfg
}

// saveResults writes the best config, and the hall of fame, generation and
// perf records of the best run when there is one.
func saveResults(om *telemetry.OutputManager, cfg *config.Config, run *BestRun) error {
	if err := om.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	if run == nil {
		return nil
	}
	if err := om.WriteHallOfFame(run.HallOfFame); err != nil {
		return err
	}
	for _, g := range run.Generations {
		if err := om.WriteGeneration(g.Stats); err != nil {
			return err
		}
	}
	lastGen := 0
	if n := len(run.Generations); n > 0 {
		lastGen = run.Generations[n-1].Generation
	}
	return om.WritePerf(run.Perf, lastGen)
}

// formatDuration formats a duration as 1h02m03s, or 2m03s below an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	return fmt.Sprintf("%dm%02ds", m, sec)
}
