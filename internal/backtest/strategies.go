package backtest

import (
	"context"
	"fmt"
	"math"

	"derivsim/internal/errors"
	"derivsim/internal/models"
)

// simulation is the bar-by-bar portfolio state shared by all
// strategies: cash, at most one open long position, and the equity
// curve. The curve always starts at the initial capital.
type simulation struct {
	cash            float64
	shares          int
	openTrade       *models.Trade
	portfolioValues []float64
	trades          []models.Trade
	signals         []models.Signal
}

func newSimulation(initialCapital float64) *simulation {
	return &simulation{
		cash:            initialCapital,
		portfolioValues: []float64{initialCapital},
	}
}

func (s *simulation) inPosition() bool {
	return s.shares > 0
}

// enter buys as many whole shares as cash allows at the bar's close.
// A close too high for even one share leaves the simulation flat.
func (s *simulation) enter(bar models.Candle, reason string) {
	shares := int(math.Floor(s.cash / bar.Close))
	if shares <= 0 {
		return
	}
	s.cash -= float64(shares) * bar.Close
	s.shares = shares
	s.openTrade = &models.Trade{
		EntryDate:  bar.Timestamp,
		EntryPrice: bar.Close,
		Quantity:   shares,
		Side:       models.PositionBuy,
	}
	s.signals = append(s.signals, models.Signal{
		Date:   bar.Timestamp,
		Action: models.PositionBuy,
		Price:  bar.Close,
		Reason: reason,
	})
}

// exit sells the whole position at the bar's close.
func (s *simulation) exit(bar models.Candle, reason string) {
	s.cash += float64(s.shares) * bar.Close
	if s.openTrade != nil {
		s.openTrade.Close(bar.Timestamp, bar.Close)
		s.trades = append(s.trades, *s.openTrade)
	}
	s.shares = 0
	s.openTrade = nil
	s.signals = append(s.signals, models.Signal{
		Date:   bar.Timestamp,
		Action: models.PositionSell,
		Price:  bar.Close,
		Reason: reason,
	})
}

// mark appends the mark-to-market portfolio value for the bar.
func (s *simulation) mark(bar models.Candle) {
	s.portfolioValues = append(s.portfolioValues, s.cash+float64(s.shares)*bar.Close)
}

// finish force-closes any position still open at the last bar. No
// position survives a run.
func (s *simulation) finish(bars []models.Candle) {
	if !s.inPosition() || len(bars) == 0 {
		return
	}
	last := bars[len(bars)-1]
	s.cash += float64(s.shares) * last.Close
	if s.openTrade != nil {
		s.openTrade.Close(last.Timestamp, last.Close)
		s.trades = append(s.trades, *s.openTrade)
	}
	s.shares = 0
	s.openTrade = nil
}

// simulateMACrossover trades golden/death crosses of two moving
// averages. Both entry and exit are edge-triggered: the relation must
// flip between the previous and current bar.
func (e *Engine) simulateMACrossover(ctx context.Context, symbol string, bars []models.Candle, p Params, sim *simulation) error {
	if p.FastMA >= p.SlowMA {
		return errors.NewValidationError("fast_ma", p.FastMA, "must be below slow_ma")
	}
	if len(bars) < p.SlowMA {
		return errors.NewInsufficientDataError(symbol, string(StrategyMACrossover), p.SlowMA, len(bars))
	}

	fast, fastOK := rollingMean(bars, p.FastMA)
	slow, slowOK := rollingMean(bars, p.SlowMA)

	for i := p.SlowMA; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar := bars[i]
		if fastOK[i] && slowOK[i] {
			// The warm-up period has no established relation, so the
			// first evaluated bar crosses up whenever fast sits above
			// slow. After that, edges need a flip between bars.
			first := i == p.SlowMA || !fastOK[i-1] || !slowOK[i-1]
			crossedUp := fast[i] > slow[i] && (first || fast[i-1] <= slow[i-1])
			crossedDown := fast[i] < slow[i] && !first && fast[i-1] >= slow[i-1]

			if crossedUp && !sim.inPosition() {
				sim.enter(bar, "Golden Cross: Fast MA crossed above Slow MA")
			} else if crossedDown && sim.inPosition() {
				sim.exit(bar, "Death Cross: Fast MA crossed below Slow MA")
			}
		}
		sim.mark(bar)
	}
	return nil
}

// simulateRSI buys oversold and sells overbought. Unlike the MA
// crossover this is level-triggered: the entry fires on every bar the
// RSI stays below the oversold line while flat, so an exit and
// re-entry can chain on consecutive bars. Intentional asymmetry.
func (e *Engine) simulateRSI(ctx context.Context, symbol string, bars []models.Candle, p Params, sim *simulation) error {
	if len(bars) < p.RSIPeriod+10 {
		return errors.NewInsufficientDataError(symbol, string(StrategyRSI), p.RSIPeriod+10, len(bars))
	}

	rsi, rsiOK := rsiSeries(bars, p.RSIPeriod)

	for i := p.RSIPeriod + 1; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar := bars[i]
		if !rsiOK[i] {
			continue
		}

		if rsi[i] < p.Oversold && !sim.inPosition() {
			sim.enter(bar, fmt.Sprintf("RSI Oversold: %.1f < %.0f", rsi[i], p.Oversold))
		} else if rsi[i] > p.Overbought && sim.inPosition() {
			sim.exit(bar, fmt.Sprintf("RSI Overbought: %.1f > %.0f", rsi[i], p.Overbought))
		}
		sim.mark(bar)
	}
	return nil
}

// simulateBreakout buys when the bar's high clears the rolling
// resistance by the threshold and exits when the low breaks support.
func (e *Engine) simulateBreakout(ctx context.Context, symbol string, bars []models.Candle, p Params, sim *simulation) error {
	if len(bars) < p.Lookback+10 {
		return errors.NewInsufficientDataError(symbol, string(StrategyBreakout), p.Lookback+10, len(bars))
	}

	for i := p.Lookback; i < len(bars); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar := bars[i]
		resistance, support := rollingExtremes(bars, i, p.Lookback)

		if bar.High > resistance*(1+p.BreakoutThreshold) && !sim.inPosition() {
			sim.enter(bar, fmt.Sprintf("Bullish Breakout: %.2f > %.2f", bar.Close, resistance))
		} else if bar.Low < support*(1-p.BreakoutThreshold) && sim.inPosition() {
			sim.exit(bar, fmt.Sprintf("Bearish Breakdown: %.2f < %.2f", bar.Close, support))
		}
		sim.mark(bar)
	}
	return nil
}
