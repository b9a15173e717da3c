// Package config provides configuration management for the simulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Backtest   BacktestConfig   `mapstructure:"backtest"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Data       DataConfig       `mapstructure:"data"`
	UI         UIConfig         `mapstructure:"ui"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PricingConfig holds Black-Scholes model parameters.
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
	Volatility   float64 `mapstructure:"volatility"`
}

// BacktestConfig holds backtest defaults.
type BacktestConfig struct {
	DefaultDays    int     `mapstructure:"default_days"`
	InitialCapital float64 `mapstructure:"initial_capital"`
	Workers        int     `mapstructure:"workers"`
}

// SimulationConfig holds the synthetic market data settings.
type SimulationConfig struct {
	Seed int64 `mapstructure:"seed"`
}

// DataConfig holds candle cache settings.
type DataConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// UIConfig holds output formatting configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/derivsim"
	}
	return filepath.Join(home, ".config", "derivsim")
}

// Load loads configuration from the specified directory. If configDir
// is empty, the default directory is used. A missing config file is
// replaced with a template and the defaults apply.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("pricing.risk_free_rate", 0.06)
	v.SetDefault("pricing.volatility", 0.25)
	v.SetDefault("backtest.default_days", 365)
	v.SetDefault("backtest.initial_capital", 100000.0)
	v.SetDefault("backtest.workers", 0)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("data.database_path", filepath.Join(configDir, "candles.db"))
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DERIVSIM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("DERIVSIM_DB_PATH"); v != "" {
		cfg.Data.DatabasePath = v
	}
	if v := os.Getenv("DERIVSIM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Pricing.RiskFreeRate < 0 || c.Pricing.RiskFreeRate > 1 {
		return fmt.Errorf("risk_free_rate must be between 0 and 1, got %v", c.Pricing.RiskFreeRate)
	}
	if c.Pricing.Volatility <= 0 || c.Pricing.Volatility > 5 {
		return fmt.Errorf("volatility must be between 0 and 5, got %v", c.Pricing.Volatility)
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.DefaultDays <= 0 {
		return fmt.Errorf("default_days must be positive, got %v", c.Backtest.DefaultDays)
	}
	return nil
}
