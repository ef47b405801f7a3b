package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/sim"
	"github.com/pthm-cable/evolab/telemetry"
)

// Evaluation is the outcome of one parameter vector averaged over all seeds.
type Evaluation struct {
	Fitness  float64 // objective value, lower is better
	Champion float64 // mean all-time best organism fitness
	Quality  float64 // mean run quality in [0, 1]
}

// BestRun is what the best evaluation so far left behind: the hall of fame,
// generation results and perf stats of its best seed.
type BestRun struct {
	Seed        int64
	HallOfFame  *telemetry.HallOfFame
	Generations []*sim.GenerationResult
	Perf        telemetry.PerfStats
}

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig config.Config
	logger     *slog.Logger

	mu          sync.Mutex
	bestFitness float64
	best        *BestRun
}

// NewFitnessEvaluator creates a new evaluator. baseCfg is copied.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  *baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestRun returns the best seed of the best evaluation, nil before the
// first evaluation.
func (fe *FitnessEvaluator) BestRun() *BestRun {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.best
}

// runResult holds the results from a single simulation run.
type runResult struct {
	seed        int64
	bestFitness float64                 // all-time best organism fitness
	generations []*sim.GenerationResult // every generation that ended
	hallOfFame  *telemetry.HallOfFame
	perf        telemetry.PerfStats
}

// Evaluate scores a raw parameter vector over every seed. Seeds run
// concurrently; each simulation owns all of its state.
func (fe *FitnessEvaluator) Evaluate(x []float64) Evaluation {
	runs := make([]*runResult, len(fe.seeds))
	fitness := make([]float64, len(fe.seeds))
	quality := make([]float64, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run := fe.runSimulation(x, seed)
			runs[i] = run
			quality[i] = computeQuality(run.generations)
			fitness[i] = computeFitness(run.bestFitness, quality[i])
		}()
	}
	wg.Wait()

	champions := make([]float64, len(runs))
	bestSeed := 0
	for i, run := range runs {
		champions[i] = run.bestFitness
		if fitness[i] < fitness[bestSeed] {
			bestSeed = i
		}
	}

	e := Evaluation{
		Fitness:  stat.Mean(fitness, nil),
		Champion: stat.Mean(champions, nil),
		Quality:  stat.Mean(quality, nil),
	}

	fe.mu.Lock()
	if e.Fitness < fe.bestFitness {
		run := runs[bestSeed]
		fe.bestFitness = e.Fitness
		fe.best = &BestRun{
			Seed:        run.seed,
			HallOfFame:  run.hallOfFame,
			Generations: run.generations,
			Perf:        run.perf,
		}
	}
	fe.mu.Unlock()

	return e
}

// runSimulation executes a single headless run until the generation limit
// or maxTicks, whichever comes first. An invalid configuration scores zero.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)

	result := &runResult{seed: seed}

	s, err := sim.New(&cfg, sim.WithSeed(seed), sim.WithLogger(fe.logger))
	if err != nil {
		return result
	}

	for !s.Finished() && (fe.maxTicks <= 0 || s.Tick() < fe.maxTicks) {
		snap := s.Step()
		if snap.Turnover != nil {
			result.generations = append(result.generations, snap.Turnover)
		}
		if snap.AllTimeBestOrganism != nil {
			result.bestFitness = snap.AllTimeBestOrganism.Fitness
		}
	}

	result.hallOfFame = s.HallOfFame()
	result.perf = s.PerfStats()
	return result
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(best × (1.0 + 0.2 × quality))
// The best organism dominates; quality adds up to 20% bonus to differentiate
// configs with similar champions.
func computeFitness(best, quality float64) float64 {
	return -(best * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightProgress  = 0.40
	qualityWeightSurvival  = 0.35
	qualityWeightStability = 0.25
)

// computeQuality scores a run's generations in [0, 1]: how often a
// generation's average beat the first one, how rarely the population died
// out, and how steady the surviving population size was.
func computeQuality(gens []*sim.GenerationResult) float64 {
	if len(gens) < 2 {
		return 0
	}

	first := gens[0].AverageFitness
	var improved, extinct int
	sizes := make([]float64, 0, len(gens))
	for _, g := range gens[1:] {
		if g.AverageFitness > first {
			improved++
		}
		if g.Reason == sim.ReasonExtinct {
			extinct++
		}
		sizes = append(sizes, float64(g.PopulationSize))
	}
	n := float64(len(gens) - 1)

	progress := float64(improved) / n
	survival := 1 - float64(extinct)/n

	stability := 0.0
	if mean, std := stat.MeanStdDev(sizes, nil); mean > 0 && !math.IsNaN(std) {
		cv := std / mean
		stability = math.Exp(-cv * cv)
	}

	quality := qualityWeightProgress*progress +
		qualityWeightSurvival*survival +
		qualityWeightStability*stability

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
