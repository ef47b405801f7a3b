// Package runner drives a simulation at a fixed cadence and fans each tick
// out to its collaborators: snapshot sinks, the run recorder, CSV output and
// metrics. A failing collaborator is logged and counted; it never stops the run.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/pthm-cable/evolab/metrics"
	"github.com/pthm-cable/evolab/recorder"
	"github.com/pthm-cable/evolab/sim"
	"github.com/pthm-cable/evolab/telemetry"
)

// Sink receives every new snapshot, for example a viewer transport.
type Sink interface {
	Publish(ctx context.Context, s *sim.Snapshot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, s *sim.Snapshot) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, s *sim.Snapshot) error { return f(ctx, s) }

// Options holds the driver parameters.
type Options struct {
	Name          string        // run name given to the recorder
	TickInterval  time.Duration // wall time between ticks, 0 runs flat out
	MaxTicks      int64         // stop after this many ticks, 0 = until finished
	RecordTimeout time.Duration // deadline per recorder call, 0 = none
	LogStats      bool          // log generation and perf stats at each turnover
	PausePoll     time.Duration // sleep between checks while paused without a ticker, 0 = 10ms
}

const defaultPausePoll = 10 * time.Millisecond

// Runner owns the tick loop of one simulation.
type Runner struct {
	sim  *sim.Simulation
	opts Options

	sinks    []Sink
	recorder recorder.Recorder
	output   *telemetry.OutputManager
	metrics  *metrics.Metrics
	logger   *slog.Logger

	runID    string
	last     *sim.Snapshot
	failures int
	idles    int
}

// Option configures a Runner.
type Option func(*Runner)

// WithSinks adds snapshot sinks.
func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithRecorder records the run, each generation and its champion.
func WithRecorder(rec recorder.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithOutput writes CSV and JSON run output. The caller closes it.
func WithOutput(om *telemetry.OutputManager) Option {
	return func(r *Runner) { r.output = om }
}

// WithMetrics updates m from every new snapshot.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger, default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner for s.
func New(s *sim.Simulation, opts Options, options ...Option) *Runner {
	r := &Runner{sim: s, opts: opts}
	for _, o := range options {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run ticks the simulation until it finishes, MaxTicks is reached or ctx is
// canceled. Only cancellation is reported as an error. Final output is
// written in every case.
func (r *Runner) Run(ctx context.Context) error {
	r.start(ctx)

	var tick <-chan time.Time
	if r.opts.TickInterval > 0 {
		t := time.NewTicker(r.opts.TickInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		if err := r.wait(ctx, tick); err != nil {
			r.finish("canceled")
			return err
		}

		snap := r.sim.Step()
		if snap != r.last {
			r.last = snap
			r.handle(ctx, snap)
		} else if tick == nil && r.sim.Controller().Paused() {
			if err := r.idle(ctx); err != nil {
				r.finish("canceled")
				return err
			}
		}

		switch {
		case snap.IsFinished:
			r.finish("finished")
			return nil
		case r.opts.MaxTicks > 0 && r.sim.Tick() >= r.opts.MaxTicks:
			r.finish("max ticks reached")
			return nil
		}
	}
}

// Failures returns how many collaborator calls failed so far.
func (r *Runner) Failures() int { return r.failures }

// RunID returns the recorder id of the run, empty without a recorder.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) wait(ctx context.Context, tick <-chan time.Time) error {
	if tick == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tick:
		return nil
	}
}

// idle blocks for one poll interval so a paused, unticked run does not spin.
func (r *Runner) idle(ctx context.Context) error {
	r.idles++
	d := r.opts.PausePoll
	if d <= 0 {
		d = defaultPausePoll
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) start(ctx context.Context) {
	cfg := r.sim.Config()
	if err := r.output.WriteConfig(&cfg); err != nil {
		r.fail("writing config", err)
	}

	if r.recorder != nil {
		rctx, cancel := r.callContext(ctx)
		id, err := r.recorder.SaveRun(rctx, r.opts.Name, cfg.Simulation)
		cancel()
		if err != nil {
			r.fail("saving run", err)
		}
		r.runID = id
	}

	r.logger.Info("run started",
		"name", r.opts.Name,
		"run_id", r.runID,
		"tick_interval", r.opts.TickInterval,
		"max_ticks", r.opts.MaxTicks,
		"output_dir", r.output.Dir(),
	)
}

func (r *Runner) handle(ctx context.Context, snap *sim.Snapshot) {
	r.metrics.Observe(snap)

	for _, s := range r.sinks {
		if err := s.Publish(ctx, snap); err != nil {
			r.fail("publishing snapshot", err, "tick", snap.Tick)
		}
	}

	if snap.Turnover != nil {
		r.endGeneration(ctx, snap.Turnover)
	}
}

func (r *Runner) endGeneration(ctx context.Context, g *sim.GenerationResult) {
	perf := r.sim.PerfStats()

	if err := r.output.WriteGeneration(g.Stats); err != nil {
		r.fail("writing generation", err, "generation", g.Generation)
	}
	if err := r.output.WritePerf(perf, g.Generation); err != nil {
		r.fail("writing perf", err, "generation", g.Generation)
	}

	if r.opts.LogStats {
		r.logger.Info("stats", "stats", g.Stats)
		r.logger.Info("perf", "perf", perf)
	}

	r.recordGeneration(ctx, g)
}

// recordGeneration saves the generation result and its champion.
// Skipped when the run itself could not be saved.
func (r *Runner) recordGeneration(ctx context.Context, g *sim.GenerationResult) {
	if r.recorder == nil || r.runID == "" {
		return
	}

	rctx, cancel := r.callContext(ctx)
	defer cancel()

	genID, err := r.recorder.SaveGeneration(rctx, r.runID, recorder.Generation{
		Number:         g.Generation,
		BestFitness:    g.BestFitness,
		AverageFitness: g.AverageFitness,
		PopulationSize: g.PopulationSize,
	})
	if err != nil {
		r.fail("saving generation", err, "generation", g.Generation)
		return
	}

	if g.Champion == nil {
		return
	}
	if _, err := r.recorder.SaveOrganism(rctx, r.runID, genID, recorder.Organism{
		Genome:  g.Champion.Genome,
		Fitness: g.Champion.Fitness,
	}); err != nil {
		r.fail("saving champion", err, "generation", g.Generation, "organism", g.Champion.ID)
	}
}

func (r *Runner) finish(reason string) {
	if err := r.output.WriteHallOfFame(r.sim.HallOfFame()); err != nil {
		r.fail("writing hall of fame", err)
	}
	if r.last != nil {
		if err := r.output.WriteSnapshot(r.last); err != nil {
			r.fail("writing final snapshot", err)
		}
	}

	hof := r.sim.HallOfFame()
	r.logger.Info("run stopped",
		"reason", reason,
		"tick", r.sim.Tick(),
		"generation", r.sim.Generation(),
		"hall_of_fame", hof.Size(),
		"top_fitness", hof.TopFitness(),
		"failures", r.failures,
	)
}

func (r *Runner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.RecordTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.opts.RecordTimeout)
}

func (r *Runner) fail(msg string, err error, attrs ...any) {
	r.failures++
	r.metrics.RecordFailure()
	r.logger.Error(msg, append(attrs, "error", err)...)
}
