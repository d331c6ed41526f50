package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fungiform/mycel/config"
	"github.com/fungiform/mycel/engine"
	"github.com/fungiform/mycel/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	realtime := flag.Bool("realtime", false, "Tick at wall-clock rate instead of as fast as possible")
	outputDir := flag.String("output-dir", "", "Output directory for CSV stats and config snapshot")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	eng, err := engine.New(rngSeed, cfg)
	if err != nil {
		slog.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	eng.SetOutput(om)
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"realtime", *realtime,
		"grid_size", cfg.Grid.Size,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *realtime {
		go func() {
			if *maxTicks > 0 {
				for eng.Tick() < *maxTicks {
					select {
					case <-ctx.Done():
						return
					case <-time.After(100 * time.Millisecond):
					}
				}
				stop()
			}
		}()
		eng.Run(ctx)
	} else {
		for *maxTicks == 0 || eng.Tick() < *maxTicks {
			if ctx.Err() != nil {
				break
			}
			n := uint64(100)
			if *maxTicks > 0 {
				if remaining := *maxTicks - eng.Tick(); remaining < n {
					n = remaining
				}
			}
			eng.StepN(int(n))
		}
	}

	snap := eng.Snapshot()
	slog.Info("simulation finished",
		"tick", snap.Tick,
		"alive", snap.Aggregates.AliveCount,
		"connections", snap.Aggregates.ConnectionCount,
		"spores", snap.Aggregates.SporeCount,
		"total_energy", snap.Aggregates.TotalEnergy,
	)
}
