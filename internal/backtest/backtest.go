// Package backtest replays historical price series through
// signal-generating strategies and measures the outcome.
package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"derivsim/internal/errors"
	"derivsim/internal/marketdata"
	"derivsim/internal/models"
)

// StrategyName identifies a supported backtest strategy.
type StrategyName string

const (
	StrategyMACrossover StrategyName = "MA_Crossover"
	StrategyRSI         StrategyName = "RSI_MeanReversion"
	StrategyBreakout    StrategyName = "Breakout"
)

// Strategies lists the supported strategy names.
func Strategies() []StrategyName {
	return []StrategyName{StrategyMACrossover, StrategyRSI, StrategyBreakout}
}

// Params holds strategy tuning parameters. Zero values fall back to
// the conventional defaults.
type Params struct {
	FastMA            int
	SlowMA            int
	RSIPeriod         int
	Oversold          float64
	Overbought        float64
	Lookback          int
	BreakoutThreshold float64
}

func (p Params) withDefaults() Params {
	if p.FastMA == 0 {
		p.FastMA = 10
	}
	if p.SlowMA == 0 {
		p.SlowMA = 50
	}
	if p.RSIPeriod == 0 {
		p.RSIPeriod = 14
	}
	if p.Oversold == 0 {
		p.Oversold = 30
	}
	if p.Overbought == 0 {
		p.Overbought = 70
	}
	if p.Lookback == 0 {
		p.Lookback = 20
	}
	if p.BreakoutThreshold == 0 {
		p.BreakoutThreshold = 0.02
	}
	return p
}

// Config describes one backtest run.
type Config struct {
	Strategy       StrategyName
	Symbol         string
	Days           int
	InitialCapital float64
	Params         Params
}

// Result is the outcome of a single run. PortfolioValues starts at
// the initial capital and gains one entry per simulated bar. A failed
// run carries its error in Err with all metrics zeroed.
type Result struct {
	StrategyName   StrategyName
	Symbol         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64

	TotalReturn  float64
	AnnualReturn float64
	MaxDrawdown  float64
	SharpeRatio  float64
	WinRate      float64
	Volatility   float64
	VaR95        float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgWin        float64
	AvgLoss       float64

	PortfolioValues []float64
	Trades          []models.Trade
	Signals         []models.Signal

	Err error
}

// Engine runs backtests against a market data provider.
type Engine struct {
	provider marketdata.Provider
	logger   zerolog.Logger
}

func NewEngine(provider marketdata.Provider, logger zerolog.Logger) *Engine {
	return &Engine{provider: provider, logger: logger}
}

// Run executes one backtest. Failures never propagate as panics or
// errors to the caller: the result comes back zeroed with Err set, so
// one bad run cannot take down a batch comparison.
func (e *Engine) Run(ctx context.Context, cfg Config) *Result {
	result := &Result{
		StrategyName:   cfg.Strategy,
		Symbol:         cfg.Symbol,
		InitialCapital: cfg.InitialCapital,
	}

	if err := e.run(ctx, cfg, result); err != nil {
		e.logger.Error().Err(err).
			Str("strategy", string(cfg.Strategy)).
			Str("symbol", cfg.Symbol).
			Msg("backtest run failed")
		return &Result{
			StrategyName:   cfg.Strategy,
			Symbol:         cfg.Symbol,
			InitialCapital: cfg.InitialCapital,
			Err:            err,
		}
	}

	e.logger.Info().
		Str("strategy", string(cfg.Strategy)).
		Str("symbol", cfg.Symbol).
		Int("trades", result.TotalTrades).
		Float64("total_return", result.TotalReturn).
		Msg("backtest completed")
	return result
}

func (e *Engine) run(ctx context.Context, cfg Config, result *Result) error {
	if cfg.InitialCapital <= 0 {
		return errors.NewValidationError("initial_capital", cfg.InitialCapital, "must be positive")
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	params := cfg.Params.withDefaults()

	series := e.provider.HistoricalBars(cfg.Symbol, cfg.Days)
	bars := series.Candles
	if len(bars) == 0 {
		return errors.Wrap(errors.ErrNoData, cfg.Symbol)
	}
	result.StartDate = bars[0].Timestamp
	result.EndDate = bars[len(bars)-1].Timestamp

	sim := newSimulation(cfg.InitialCapital)

	var err error
	switch cfg.Strategy {
	case StrategyMACrossover:
		err = e.simulateMACrossover(ctx, cfg.Symbol, bars, params, sim)
	case StrategyRSI:
		err = e.simulateRSI(ctx, cfg.Symbol, bars, params, sim)
	case StrategyBreakout:
		err = e.simulateBreakout(ctx, cfg.Symbol, bars, params, sim)
	default:
		err = errors.Wrapf(errors.ErrUnknownStrategy, "%q", cfg.Strategy)
	}
	if err != nil {
		return err
	}

	sim.finish(bars)
	result.PortfolioValues = sim.portfolioValues
	result.Trades = sim.trades
	result.Signals = sim.signals
	computeMetrics(result)
	return nil
}
