package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if cfg.Grid.Size != 200 {
		t.Errorf("grid.size = %d, want 200", cfg.Grid.Size)
	}
	if cfg.Grid.CellSize != 4.0 {
		t.Errorf("grid.cell_size = %g, want 4.0", cfg.Grid.CellSize)
	}
	if cfg.Growth.StepSize != 0.5 {
		t.Errorf("growth.step_size = %g, want 0.5", cfg.Growth.StepSize)
	}
	if cfg.Network.AnastomosisDistance != 2.0 {
		t.Errorf("network.anastomosis_distance = %g, want 2.0", cfg.Network.AnastomosisDistance)
	}
	if !cfg.Weather.Enabled {
		t.Error("weather.enabled should default to true")
	}
}

func TestLoadMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("grid:\n  size: 64\ngrowth:\n  max_tips: 500\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading merged config: %v", err)
	}
	if cfg.Grid.Size != 64 {
		t.Errorf("grid.size = %d, want override 64", cfg.Grid.Size)
	}
	if cfg.Growth.MaxTips != 500 {
		t.Errorf("growth.max_tips = %d, want override 500", cfg.Growth.MaxTips)
	}
	// Untouched fields keep their defaults.
	if cfg.Grid.CellSize != 4.0 {
		t.Errorf("grid.cell_size = %g, want default 4.0", cfg.Grid.CellSize)
	}
	if cfg.Energy.UptakeRate != 0.01 {
		t.Errorf("energy.uptake_rate = %g, want default 0.01", cfg.Energy.UptakeRate)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero grid size", func(c *Config) { c.Grid.Size = 0 }},
		{"negative cell size", func(c *Config) { c.Grid.CellSize = -1 }},
		{"zero dt", func(c *Config) { c.Tick.DT = 0 }},
		{"zero step size", func(c *Config) { c.Growth.StepSize = 0 }},
		{"zero max tips", func(c *Config) { c.Growth.MaxTips = 0 }},
		{"branch probability above one", func(c *Config) { c.Growth.BranchProbability = 1.5 }},
		{"negative diffusion", func(c *Config) { c.Nutrients.DiffusionRate = -0.1 }},
		{"decay rate above one", func(c *Config) { c.Energy.DecayRate = 1.1 }},
		{"initial tips over cap", func(c *Config) { c.Growth.InitialTips = c.Growth.MaxTips + 1 }},
		{"lifespan max below min", func(c *Config) { c.Fruiting.LifespanMax = c.Fruiting.LifespanMin - 1 }},
		{"zero anastomosis distance", func(c *Config) { c.Network.AnastomosisDistance = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			t.Errorf("defaults should validate: %v", err)
		}
	})
}

func TestWriteYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")
	cfg := Default()
	cfg.Grid.Size = 77

	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if loaded.Grid.Size != 77 {
		t.Errorf("round-tripped grid.size = %d, want 77", loaded.Grid.Size)
	}
}
