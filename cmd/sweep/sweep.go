package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fungiform/mycel/config"
	"github.com/fungiform/mycel/engine"
)

// SeedResult holds the outcome of one headless run.
type SeedResult struct {
	Seed          int64   `csv:"seed"`
	SurvivalTicks uint64  `csv:"survival_ticks"` // ticks before extinction, or max_ticks
	Extinct       bool    `csv:"extinct"`
	PeakAlive     int     `csv:"peak_alive"`
	FinalAlive    int     `csv:"final_alive"`
	Connections   int     `csv:"connections"`
	Spores        int     `csv:"spores"`
	Fruiting      int     `csv:"fruiting_bodies"`
	TotalEnergy   float64 `csv:"total_energy"`
	FieldSugar    float64 `csv:"field_sugar"`
}

// pollInterval is how many ticks each run advances between liveness
// checks. Coarse polling keeps snapshot cost off the hot path.
const pollInterval = 100

// runSeed executes one colony to extinction or maxTicks.
func runSeed(cfg config.Config, seed int64, maxTicks uint64) (SeedResult, error) {
	eng, err := engine.New(seed, cfg)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed %d: %w", seed, err)
	}
	// Per-run window stats are noise here; only the sweep summary logs.
	eng.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	result := SeedResult{Seed: seed, SurvivalTicks: maxTicks}

	for eng.Tick() < maxTicks {
		n := uint64(pollInterval)
		if remaining := maxTicks - eng.Tick(); remaining < n {
			n = remaining
		}
		eng.StepN(int(n))

		snap := eng.Snapshot()
		if snap.Aggregates.AliveCount > result.PeakAlive {
			result.PeakAlive = snap.Aggregates.AliveCount
		}
		// A colony with no tips, no spores, and no fruiting bodies has
		// nothing left that can come back.
		if snap.Aggregates.AliveCount == 0 &&
			snap.Aggregates.SporeCount == 0 &&
			snap.Aggregates.FruitingCount == 0 {
			result.Extinct = true
			result.SurvivalTicks = snap.Tick
			break
		}
	}

	final := eng.Snapshot()
	result.FinalAlive = final.Aggregates.AliveCount
	result.Connections = final.Aggregates.ConnectionCount
	result.Spores = final.Aggregates.SporeCount
	result.Fruiting = final.Aggregates.FruitingCount
	result.TotalEnergy = final.Aggregates.TotalEnergy
	for _, v := range final.Field.Sugar {
		result.FieldSugar += float64(v)
	}
	return result, nil
}

// runSweep evaluates every seed, at most parallel runs at a time.
func runSweep(cfg config.Config, seeds []int64, maxTicks uint64, parallel int, logger *slog.Logger) ([]SeedResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]SeedResult, len(seeds))
	errs := make([]error, len(seeds))
	sem := make(chan struct{}, parallel)

	var wg sync.WaitGroup
	for i, seed := range seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			r, err := runSeed(cfg, s, maxTicks)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = r
			logger.Info("seed_done",
				"seed", s,
				"extinct", r.Extinct,
				"survival_ticks", r.SurvivalTicks,
				"peak_alive", r.PeakAlive,
				"final_alive", r.FinalAlive,
			)
		}(i, seed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
