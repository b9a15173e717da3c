package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"derivsim/internal/backtest"
	"derivsim/internal/config"
	"derivsim/internal/instruments"
	"derivsim/internal/logging"
	"derivsim/internal/marketdata"
	"derivsim/internal/store"
	"derivsim/internal/strategy"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Catalog  *instruments.Catalog
	Provider *marketdata.SimulatedProvider
	Chains   *marketdata.ChainService
	Builder  *strategy.Builder
	Engine   *backtest.Engine
	Store    store.CandleStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Catalog = instruments.NewCatalogWithSpecs(
		instruments.DefaultSpecs(), cfg.Pricing.RiskFreeRate, cfg.Pricing.Volatility)

	// Candle cache is best-effort: without it bars are regenerated
	// each run instead of read back.
	candleStore, err := store.NewSQLiteStore(cfg.Data.DatabasePath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open candle cache, continuing without it")
	} else {
		app.Store = candleStore
	}

	app.Provider = marketdata.NewSimulatedProvider(
		cfg.Simulation.Seed, cfg.Pricing.RiskFreeRate, app.Store, logger)
	app.Chains = marketdata.NewChainService(app.Catalog, app.Provider)
	app.Builder = strategy.NewBuilder(app.Catalog, app.Provider)
	app.Engine = backtest.NewEngine(app.Provider, logger)

	rootCmd := &cobra.Command{
		Use:   "derivsim",
		Short: "Derivsim - NSE F&O pricing and backtesting CLI",
		Long: `Derivsim prices NSE futures and options, builds multi-leg strategies,
and backtests signal strategies over simulated historical data.

Use 'derivsim help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/derivsim)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addPricingCommands(rootCmd, app)
	addChainCommands(rootCmd, app)
	addStrategyCommands(rootCmd, app)
	addBacktestCommands(rootCmd, app)

	return rootCmd
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Derivsim v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			output.Bold("Pricing")
			output.Printf("  risk_free_rate: %.4f\n", app.Config.Pricing.RiskFreeRate)
			output.Printf("  volatility:     %.4f\n", app.Config.Pricing.Volatility)
			output.Bold("Backtest")
			output.Printf("  default_days:    %d\n", app.Config.Backtest.DefaultDays)
			output.Printf("  initial_capital: %.2f\n", app.Config.Backtest.InitialCapital)
			output.Bold("Simulation")
			output.Printf("  seed: %d\n", app.Config.Simulation.Seed)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
