// Command sweep runs the colony simulation headless across a batch of
// seeds in parallel and writes one CSV row per run, for judging how
// robustly a parameter set sustains a colony.
package main

import (
	"flag"
	"log/slog"
	"os"
	"runtime"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/fungiform/mycel/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults embedded)")
	seedStart := flag.Int64("seed-start", 1, "first seed in the batch")
	seedCount := flag.Int("seeds", 8, "number of seeds to run")
	maxTicks := flag.Uint64("ticks", 36000, "ticks per run")
	parallel := flag.Int("parallel", runtime.NumCPU(), "concurrent runs")
	outPath := flag.String("out", "sweep.csv", "results CSV path")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	seeds := make([]int64, *seedCount)
	for i := range seeds {
		seeds[i] = *seedStart + int64(i)
	}

	logger.Info("sweep_start",
		"seeds", *seedCount,
		"seed_start", *seedStart,
		"ticks", *maxTicks,
		"parallel", *parallel,
	)

	results, err := runSweep(cfg, seeds, *maxTicks, *parallel, logger)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		logger.Error("failed to create results file", "error", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&results, f); err != nil {
		logger.Error("failed to write results", "error", err)
		os.Exit(1)
	}

	survival := make([]float64, len(results))
	alive := make([]float64, len(results))
	extinct := 0
	for i, r := range results {
		survival[i] = float64(r.SurvivalTicks)
		alive[i] = float64(r.FinalAlive)
		if r.Extinct {
			extinct++
		}
	}
	logger.Info("sweep_done",
		"out", *outPath,
		"extinct", extinct,
		"survival_mean", stat.Mean(survival, nil),
		"survival_std", stat.StdDev(survival, nil),
		"final_alive_mean", stat.Mean(alive, nil),
	)
}
