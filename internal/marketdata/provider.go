// Package marketdata supplies spot prices and historical OHLCV series
// for the simulator. Real feeds are out of scope: the provider serves
// deterministic synthetic data, clearly marked as such, and never
// fails a caller.
package marketdata

import (
	"time"

	"derivsim/internal/models"
)

// Series is a historical OHLCV series. Synthetic marks data that was
// generated rather than observed.
type Series struct {
	Symbol    string
	Candles   []models.Candle
	Synthetic bool
}

// Provider supplies market data to the engine. Implementations degrade
// to synthetic fallback data instead of returning errors; the core does
// not implement retries.
type Provider interface {
	// SpotPrice returns the current price for an underlying.
	SpotPrice(symbol string) float64

	// HistoricalBars returns daily bars covering the trailing number
	// of days.
	HistoricalBars(symbol string, days int) Series

	// FuturesPrice returns the cost-of-carry futures price for the
	// underlying at the given expiry.
	FuturesPrice(symbol string, expiry time.Time) float64
}
