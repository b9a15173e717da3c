package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pricing.RiskFreeRate != 0.06 {
		t.Errorf("RiskFreeRate = %v, want 0.06", cfg.Pricing.RiskFreeRate)
	}
	if cfg.Pricing.Volatility != 0.25 {
		t.Errorf("Volatility = %v, want 0.25", cfg.Pricing.Volatility)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("InitialCapital = %v, want 100000", cfg.Backtest.InitialCapital)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("Seed = %v, want 42", cfg.Simulation.Seed)
	}

	// A template is written for next time.
	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("template config not created: %v", err)
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("[pricing]\nrisk_free_rate = 0.07\nvolatility = 0.30\n\n[simulation]\nseed = 7\n")
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), contents, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pricing.RiskFreeRate != 0.07 || cfg.Pricing.Volatility != 0.30 {
		t.Errorf("pricing = %+v, want overrides applied", cfg.Pricing)
	}
	if cfg.Simulation.Seed != 7 {
		t.Errorf("Seed = %v, want 7", cfg.Simulation.Seed)
	}
	// Unspecified sections keep their defaults.
	if cfg.Backtest.DefaultDays != 365 {
		t.Errorf("DefaultDays = %v, want 365", cfg.Backtest.DefaultDays)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	contents := []byte("[pricing]\nvolatility = -0.1\n")
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), contents, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("Load accepted negative volatility")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DERIVSIM_SEED", "99")
	t.Setenv("DERIVSIM_LOG_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.Seed != 99 {
		t.Errorf("Seed = %v, want 99 from env", cfg.Simulation.Seed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug from env", cfg.Logging.Level)
	}
}
