package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"derivsim/internal/errors"
	"derivsim/internal/marketdata"
	"derivsim/internal/models"
)

// stubProvider serves a fixed bar series, so strategy behavior is
// fully determined by the test data.
type stubProvider struct {
	bars []models.Candle
}

func (s *stubProvider) SpotPrice(string) float64 {
	return s.bars[len(s.bars)-1].Close
}

func (s *stubProvider) HistoricalBars(symbol string, days int) marketdata.Series {
	return marketdata.Series{Symbol: symbol, Candles: s.bars, Synthetic: true}
}

func (s *stubProvider) FuturesPrice(string, time.Time) float64 {
	return s.SpotPrice("")
}

func mkBars(closes []float64) []models.Candle {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Candle, len(closes))
	for i, c := range closes {
		bars[i] = models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func rampBars(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + step*float64(i)
	}
	return closes
}

func testEngine(bars []models.Candle) *Engine {
	return NewEngine(&stubProvider{bars: bars}, zerolog.Nop())
}

func checkSignalsAlternate(t *testing.T, r *Result) {
	t.Helper()
	want := models.PositionBuy
	for i, sig := range r.Signals {
		if sig.Action != want {
			t.Errorf("signal %d = %s, want %s", i, sig.Action, want)
		}
		if want == models.PositionBuy {
			want = models.PositionSell
		} else {
			want = models.PositionBuy
		}
	}
}

func TestBreakoutMonotonicRiseEntersOnce(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.03, float64(i))
	}
	bars := mkBars(closes)
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyBreakout,
		Symbol:         "NIFTY",
		Days:           40,
		InitialCapital: 100000,
		Params:         Params{Lookback: 10},
	})
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}
	if len(r.Signals) != 1 || r.Signals[0].Action != models.PositionBuy {
		t.Fatalf("signals = %v, want exactly one BUY", r.Signals)
	}
	// The open position is force-closed at data end.
	if r.TotalTrades != 1 {
		t.Fatalf("TotalTrades = %d, want 1", r.TotalTrades)
	}
	if !r.Trades[0].IsClosed {
		t.Error("trade not closed at data end")
	}
	if r.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %.2f on a rising series, want > 0", r.TotalReturn)
	}
	if r.WinRate != 100 {
		t.Errorf("WinRate = %.1f, want 100", r.WinRate)
	}
}

func TestRSIFlatSeriesStaysFlat(t *testing.T) {
	bars := mkBars(rampBars(60, 100, 0))
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyRSI,
		Symbol:         "NIFTY",
		Days:           60,
		InitialCapital: 100000,
	})
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}
	// A flat series has RSI 50 everywhere: no entries, equity pinned
	// at the initial capital.
	if r.TotalTrades != 0 || len(r.Signals) != 0 {
		t.Fatalf("trades = %d signals = %d, want none", r.TotalTrades, len(r.Signals))
	}
	for i, v := range r.PortfolioValues {
		if v != 100000 {
			t.Fatalf("PortfolioValues[%d] = %.2f, want 100000", i, v)
		}
	}
}

func TestMACrossoverVShape(t *testing.T) {
	closes := append(rampBars(30, 100, -1), rampBars(30, 71, 1)...)
	bars := mkBars(closes)
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           60,
		InitialCapital: 100000,
		Params:         Params{FastMA: 3, SlowMA: 10},
	})
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}
	if r.TotalTrades != 1 {
		t.Fatalf("TotalTrades = %d, want 1 (golden cross after the trough)", r.TotalTrades)
	}
	trade := r.Trades[0]
	if trade.Side != models.PositionBuy || trade.PnL <= 0 {
		t.Errorf("trade = %+v, want profitable long", trade)
	}
	checkSignalsAlternate(t, r)
}

func TestMACrossoverMonotonicRiseBuysAtWarmup(t *testing.T) {
	bars := mkBars(rampBars(120, 100, 1))
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           120,
		InitialCapital: 100000,
		Params:         Params{FastMA: 10, SlowMA: 50},
	})
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}

	var buys, sells int
	for _, sig := range r.Signals {
		switch sig.Action {
		case models.PositionBuy:
			buys++
		case models.PositionSell:
			sells++
		}
	}
	if buys != 1 {
		t.Errorf("BUY signals = %d, want exactly 1 at the warm-up boundary", buys)
	}
	if sells != 0 {
		t.Errorf("SELL signals = %d, want 0 on a rising series", sells)
	}
	if len(r.Signals) > 0 && !r.Signals[0].Date.Equal(bars[50].Timestamp) {
		t.Errorf("entry at %v, want first evaluated bar %v", r.Signals[0].Date, bars[50].Timestamp)
	}
	// Force-close at the end turns the single entry into one winner.
	if r.TotalTrades != 1 || r.Trades[0].PnL <= 0 {
		t.Errorf("trades = %+v, want one profitable long", r.Trades)
	}
}

func TestRSILevelTriggeredReentry(t *testing.T) {
	closes := append(rampBars(20, 100, -1), rampBars(20, 82, 1)...)
	closes = append(closes, rampBars(20, 100, -1)...)
	bars := mkBars(closes)
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyRSI,
		Symbol:         "NIFTY",
		Days:           60,
		InitialCapital: 100000,
	})
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}
	// Down-up-down produces entry, exit, and a level-triggered
	// re-entry once oversold again; the second trade force-closes.
	if len(r.Signals) != 3 {
		t.Fatalf("signals = %d, want 3 (BUY, SELL, BUY)", len(r.Signals))
	}
	checkSignalsAlternate(t, r)
	if r.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", r.TotalTrades)
	}
}

func TestEquityCurveInvariants(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	bars := mkBars(closes)
	e := testEngine(bars)

	cfg := Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           80,
		InitialCapital: 50000,
		Params:         Params{FastMA: 5, SlowMA: 20},
	}
	r := e.Run(context.Background(), cfg)
	if r.Err != nil {
		t.Fatalf("Run: %v", r.Err)
	}
	if r.PortfolioValues[0] != 50000 {
		t.Errorf("PortfolioValues[0] = %.2f, want the initial capital", r.PortfolioValues[0])
	}
	// One point per simulated bar plus the starting value.
	if want := len(bars) - 20 + 1; len(r.PortfolioValues) != want {
		t.Errorf("equity curve length = %d, want %d", len(r.PortfolioValues), want)
	}
	for i, v := range r.PortfolioValues {
		if v <= 0 {
			t.Errorf("PortfolioValues[%d] = %.2f, want positive", i, v)
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/7) + 0.1*float64(i)
	}
	bars := mkBars(closes)
	cfg := Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           120,
		InitialCapital: 100000,
		Params:         Params{FastMA: 5, SlowMA: 20},
	}

	a := testEngine(bars).Run(context.Background(), cfg)
	b := testEngine(bars).Run(context.Background(), cfg)
	if a.Err != nil || b.Err != nil {
		t.Fatalf("Run: %v / %v", a.Err, b.Err)
	}
	if a.TotalReturn != b.TotalReturn || a.SharpeRatio != b.SharpeRatio || a.TotalTrades != b.TotalTrades {
		t.Errorf("runs differ: %+v vs %+v", a, b)
	}
	if len(a.PortfolioValues) != len(b.PortfolioValues) {
		t.Fatalf("curve lengths differ: %d vs %d", len(a.PortfolioValues), len(b.PortfolioValues))
	}
	for i := range a.PortfolioValues {
		if a.PortfolioValues[i] != b.PortfolioValues[i] {
			t.Fatalf("PortfolioValues[%d] differ: %v vs %v", i, a.PortfolioValues[i], b.PortfolioValues[i])
		}
	}
}

func TestInsufficientDataFailsRun(t *testing.T) {
	bars := mkBars(rampBars(15, 100, 1))
	e := testEngine(bars)

	r := e.Run(context.Background(), Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           15,
		InitialCapital: 100000,
	})
	if !errors.Is(r.Err, errors.ErrInsufficientData) {
		t.Fatalf("Err = %v, want ErrInsufficientData", r.Err)
	}
	var dataErr *errors.InsufficientDataError
	if !errors.As(r.Err, &dataErr) {
		t.Fatal("Err does not unwrap to InsufficientDataError")
	}
	if dataErr.Needed != 50 || dataErr.Got != 15 {
		t.Errorf("needed/got = %d/%d, want 50/15", dataErr.Needed, dataErr.Got)
	}
	// A failed run comes back zeroed, not partially filled.
	if r.TotalReturn != 0 || len(r.PortfolioValues) != 0 || r.TotalTrades != 0 {
		t.Errorf("failed run not zeroed: %+v", r)
	}
}

func TestUnknownStrategyFailsRun(t *testing.T) {
	e := testEngine(mkBars(rampBars(100, 100, 1)))
	r := e.Run(context.Background(), Config{
		Strategy:       "Martingale",
		Symbol:         "NIFTY",
		InitialCapital: 100000,
	})
	if !errors.Is(r.Err, errors.ErrUnknownStrategy) {
		t.Errorf("Err = %v, want ErrUnknownStrategy", r.Err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	e := testEngine(mkBars(rampBars(500, 100, 0.5)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.Run(ctx, Config{
		Strategy:       StrategyMACrossover,
		Symbol:         "NIFTY",
		Days:           500,
		InitialCapital: 100000,
	})
	if !errors.Is(r.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", r.Err)
	}
}

func TestCompareStrategiesRankedBySharpe(t *testing.T) {
	closes := make([]float64, 150)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/9) + 0.2*float64(i)
	}
	e := testEngine(mkBars(closes))

	configs := []Config{
		{Strategy: StrategyMACrossover, Symbol: "NIFTY", Days: 150, InitialCapital: 100000, Params: Params{FastMA: 5, SlowMA: 20}},
		{Strategy: StrategyRSI, Symbol: "NIFTY", Days: 150, InitialCapital: 100000},
		{Strategy: StrategyBreakout, Symbol: "NIFTY", Days: 150, InitialCapital: 100000},
		{Strategy: "Martingale", Symbol: "NIFTY", Days: 150, InitialCapital: 100000},
	}
	results := e.CompareStrategies(context.Background(), configs)
	if len(results) != len(configs) {
		t.Fatalf("results = %d, want %d", len(results), len(configs))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Err == nil && results[i].Err == nil &&
			results[i-1].SharpeRatio < results[i].SharpeRatio {
			t.Errorf("results out of order at %d: %.4f < %.4f",
				i, results[i-1].SharpeRatio, results[i].SharpeRatio)
		}
	}
	// The unknown strategy fails but still appears, ranked last.
	if results[len(results)-1].Err == nil {
		t.Error("failed run should sort last")
	}
}

func TestOptimizeMAGrid(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 25*math.Sin(float64(i)/11) + 0.15*float64(i)
	}
	e := testEngine(mkBars(closes))

	opt, err := e.Optimize(context.Background(), StrategyMACrossover, "NIFTY", 200, ParamRanges{})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	// Default 4x4 grid: every fast < slow combination qualifies.
	if opt.Evaluated != 16 {
		t.Errorf("Evaluated = %d, want 16", opt.Evaluated)
	}
	if opt.BestResult == nil {
		t.Fatal("no best result selected")
	}
	if opt.BestParams.FastMA >= opt.BestParams.SlowMA {
		t.Errorf("best params invalid: fast %d >= slow %d", opt.BestParams.FastMA, opt.BestParams.SlowMA)
	}
	if opt.BestSharpe != opt.BestResult.SharpeRatio {
		t.Errorf("BestSharpe = %.4f, result Sharpe = %.4f", opt.BestSharpe, opt.BestResult.SharpeRatio)
	}
}

func TestOptimizeUnknownStrategy(t *testing.T) {
	e := testEngine(mkBars(rampBars(100, 100, 1)))
	if _, err := e.Optimize(context.Background(), "Martingale", "NIFTY", 100, ParamRanges{}); !errors.Is(err, errors.ErrUnknownStrategy) {
		t.Errorf("err = %v, want ErrUnknownStrategy", err)
	}
}
