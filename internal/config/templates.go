package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Derivsim Configuration

[pricing]
# Annual risk-free rate used by the Black-Scholes model
risk_free_rate = 0.06
# Annualized volatility assumption for premium calculation
volatility = 0.25

[backtest]
# Default history window in days
default_days = 365
# Default starting capital in INR
initial_capital = 100000.0
# Worker count for comparisons and grid search (0 = NumCPU)
workers = 0

[simulation]
# Seed for the synthetic market data generator. Runs with the same
# seed are reproducible.
seed = 42

[data]
# SQLite candle cache location (empty = config dir default)
# database_path = ""

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[logging]
# Log level: debug, info, warn, error
level = "info"
# Log to console
console = true
# Log to rotating file
file = true
`

// createTemplateConfig writes a commented starter config so a first
// run leaves something editable behind.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(configTemplate), 0644)
}
