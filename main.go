package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/evolab/config"
	"github.com/pthm-cable/evolab/metrics"
	"github.com/pthm-cable/evolab/recorder"
	"github.com/pthm-cable/evolab/runner"
	"github.com/pthm-cable/evolab/sim"
	"github.com/pthm-cable/evolab/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = until the generation limit)")
	tickInterval := flag.Duration("tick-interval", -1, "Wall time between ticks (negative = use config, 0 = as fast as possible)")
	speed := flag.Float64("speed", 0, "Simulation speed multiplier (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, hall of fame and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output generation stats via slog")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (empty = disabled)")
	name := flag.String("name", "", "Run name for the recorder (empty = derived from the seed)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *speed > 0 {
		cfg.Runner.InitialSpeed = *speed
	}
	if *tickInterval >= 0 {
		cfg.Runner.TickInterval = *tickInterval
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	runName := *name
	if runName == "" {
		runName = "run-" + time.Unix(0, rngSeed).UTC().Format("20060102-150405")
	}

	s, err := sim.New(cfg, sim.WithSeed(rngSeed), sim.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	m := metrics.New(runName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: metricsMux(m)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("starting simulation",
		"name", runName,
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"tick_interval", cfg.Runner.TickInterval,
		"speed", cfg.Runner.InitialSpeed,
		"metrics_addr", *metricsAddr,
	)

	r := runner.New(s, runner.Options{
		Name:          runName,
		TickInterval:  cfg.Runner.TickInterval,
		MaxTicks:      *maxTicks,
		RecordTimeout: cfg.Runner.RecordTimeout,
		LogStats:      *logStats,
	},
		runner.WithRecorder(recorder.NewMemory()),
		runner.WithOutput(om),
		runner.WithMetrics(m),
		runner.WithLogger(logger),
	)

	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "error", err)
	}
}

func metricsMux(m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
