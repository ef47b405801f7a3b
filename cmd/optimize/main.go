// Package main provides CMA-ES optimization for finding tuning parameters
// under which the simulation evolves the fittest organisms.
//
// The output directory receives optimize_log.csv with one row per
// evaluation, config.yaml holding the base config with the best parameters
// applied, and the hall of fame, generations.csv and perf.csv of the best
// run.
package main

import (
	"errors"
	"flag"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxTicks := flag.Int64("max-ticks", 20000, "Maximum simulation duration in ticks (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger, *configPath, *outputDir, *maxTicks, *seeds, *maxEvals, *population); err != nil {
		logger.Error("optimization failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, outputDir string, maxTicks int64, seeds, maxEvals, population int) error {
	if outputDir == "" {
		return errors.New("--output is required")
	}
	if seeds < 1 {
		return errors.New("--seeds must be at least 1")
	}

	if err := config.Init(configPath); err != nil {
		return err
	}
	baseCfg := config.Cfg()

	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()

	evalLog, err := createEvalLog(filepath.Join(outputDir, "optimize_log.csv"))
	if err != nil {
		return err
	}
	defer evalLog.Close()

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, maxTicks, evalSeeds(seeds), baseCfg)
	s := newSearch(params, evaluator.Evaluate, baseCfg, evalLog, logger, maxEvals)

	dim := params.Dim()
	if population == 0 {
		population = 4 + int(3*math.Log(float64(dim)))
	}

	logger.Info("starting CMA-ES",
		"params", dim,
		"population", population,
		"max_evals", maxEvals,
		"seeds", seeds,
		"max_ticks", maxTicks,
	)

	result, err := optimize.Minimize(
		optimize.Problem{Func: s.objective},
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: population},
	)
	if err != nil {
		logger.Warn("optimization ended early", "error", err)
	}

	var fallback []float64
	if result != nil {
		fallback = params.Denormalize(result.X)
	} else {
		fallback = params.DefaultVector()
	}
	bestCfg := s.bestConfig(fallback)

	if s.best != nil {
		attrs := []any{
			"evals", s.evals,
			"elapsed", formatDuration(time.Since(s.started)),
			"best_eval", s.best.eval,
			"champion", s.best.score.Champion,
			"quality", s.best.score.Quality,
		}
		for i, spec := range params.Specs {
			attrs = append(attrs, spec.Name, s.best.params[i])
		}
		logger.Info("optimization complete", attrs...)
	}

	if err := saveResults(om, &bestCfg, evaluator.BestRun()); err != nil {
		return err
	}
	logger.Info("results saved", "dir", om.Dir())
	return nil
}

// evalSeeds returns n fixed seeds so every candidate faces the same worlds.
func evalSeeds(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	return seeds
}
