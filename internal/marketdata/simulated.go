package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"derivsim/internal/models"
	"derivsim/internal/store"
)

// spotTTL bounds how long a cached spot price is served before the
// simulated walk advances it.
const spotTTL = 60 * time.Second

// basePrices seed the simulated walk per underlying.
var basePrices = map[string]float64{
	"NIFTY":      19500,
	"BANKNIFTY":  44000,
	"RELIANCE":   2500,
	"TCS":        3600,
	"HDFCBANK":   1600,
	"ICICIBANK":  1000,
	"INFY":       1500,
	"HINDUNILVR": 2600,
	"LT":         2800,
	"SBIN":       550,
}

const fallbackBasePrice = 100.0

// SimulatedProvider generates market data from a seeded random walk.
// The same (seed, symbol, days) always yields the same series, which
// backtest determinism depends on. A CandleStore, when configured,
// persists generated series across processes.
type SimulatedProvider struct {
	seed         int64
	riskFreeRate float64
	candles      store.CandleStore
	logger       zerolog.Logger
	now          func() time.Time

	mu         sync.Mutex
	spotCache  map[string]float64
	spotAsOf   map[string]time.Time
	spotRng    *rand.Rand
	seriesMemo map[string][]models.Candle
}

// NewSimulatedProvider creates a provider seeded for reproducible data.
// candleStore may be nil.
func NewSimulatedProvider(seed int64, riskFreeRate float64, candleStore store.CandleStore, logger zerolog.Logger) *SimulatedProvider {
	return &SimulatedProvider{
		seed:         seed,
		riskFreeRate: riskFreeRate,
		candles:      candleStore,
		logger:       logger.With().Str("component", "marketdata").Logger(),
		now:          time.Now,
		spotCache:    make(map[string]float64),
		spotAsOf:     make(map[string]time.Time),
		spotRng:      rand.New(rand.NewSource(seed)),
		seriesMemo:   make(map[string][]models.Candle),
	}
}

// SetClock overrides the provider's clock.
func (p *SimulatedProvider) SetClock(now func() time.Time) {
	p.now = now
}

// SpotPrice returns the current simulated price for an underlying.
// Prices drift a small random step whenever the cached value has gone
// stale. Unknown symbols get the fallback base price.
func (p *SimulatedProvider) SpotPrice(symbol string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if price, ok := p.spotCache[symbol]; ok {
		if now.Sub(p.spotAsOf[symbol]) < spotTTL {
			return price
		}
		// Stale: advance the walk by up to ±2%.
		next := price * (1 + (p.spotRng.Float64()*0.04 - 0.02))
		p.spotCache[symbol] = next
		p.spotAsOf[symbol] = now
		return next
	}

	base, ok := basePrices[symbol]
	if !ok {
		base = fallbackBasePrice
	}
	// Initial ±5% dispersion around the base price.
	price := base * (1 + (p.spotRng.Float64()*0.10 - 0.05))
	p.spotCache[symbol] = price
	p.spotAsOf[symbol] = now
	return price
}

// FuturesPrice returns the cost-of-carry price F = S * e^(rT).
func (p *SimulatedProvider) FuturesPrice(symbol string, expiry time.Time) float64 {
	spot := p.SpotPrice(symbol)
	tte := math.Max(0, expiry.Sub(p.now()).Hours()/24/365)
	return spot * math.Exp(p.riskFreeRate*tte)
}

// HistoricalBars returns a daily series covering the trailing number of
// days. Generated series are memoized in memory and, when a store is
// configured, persisted so later runs replay identical bars.
func (p *SimulatedProvider) HistoricalBars(symbol string, days int) Series {
	if days <= 0 {
		days = 365
	}

	end := p.now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	p.mu.Lock()
	memoKey := seriesKey(symbol, days)
	if cached, ok := p.seriesMemo[memoKey]; ok {
		p.mu.Unlock()
		return Series{Symbol: symbol, Candles: cached, Synthetic: true}
	}
	p.mu.Unlock()

	if p.candles != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stored, err := p.candles.GetCandles(ctx, symbol, "1day", start, end)
		if err != nil {
			p.logger.Warn().Err(err).Str("symbol", symbol).Msg("candle store read failed, generating")
		} else if len(stored) >= days {
			return Series{Symbol: symbol, Candles: stored, Synthetic: true}
		}
	}

	candles := p.generate(symbol, start, days+1)

	p.mu.Lock()
	p.seriesMemo[memoKey] = candles
	p.mu.Unlock()

	if p.candles != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.candles.SaveCandles(ctx, symbol, "1day", candles); err != nil {
			p.logger.Warn().Err(err).Str("symbol", symbol).Msg("candle store write failed")
		}
	}

	return Series{Symbol: symbol, Candles: candles, Synthetic: true}
}

// generate produces a geometric random walk with a slight upward bias
// (0.1% daily drift, 2% daily volatility), seeded per symbol so the
// series is reproducible.
func (p *SimulatedProvider) generate(symbol string, start time.Time, bars int) []models.Candle {
	rng := rand.New(rand.NewSource(p.seed ^ symbolSeed(symbol)))

	base, ok := basePrices[symbol]
	if !ok {
		base = fallbackBasePrice
	}

	const intradayVol = 0.02

	candles := make([]models.Candle, 0, bars)
	closePrice := base
	prevClose := base

	for i := 0; i < bars; i++ {
		if i > 0 {
			change := rng.NormFloat64()*0.02 + 0.001
			prevClose = closePrice
			closePrice = math.Max(closePrice*(1+change), 1.0)
		}

		high := closePrice * (1 + rng.Float64()*intradayVol)
		low := closePrice * (1 - rng.Float64()*intradayVol)
		open := prevClose * (1 + (rng.Float64()-0.5)*intradayVol)
		if i == 0 {
			open = closePrice
		}

		high = math.Max(high, math.Max(open, closePrice))
		low = math.Min(low, math.Min(open, closePrice))

		candles = append(candles, models.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(closePrice),
			Volume:    100000 + rng.Int63n(900000),
		})
	}

	return candles
}

func seriesKey(symbol string, days int) string {
	return fmt.Sprintf("%s/%d", symbol, days)
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
