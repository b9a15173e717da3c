// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"derivsim/internal/models"
)

// CandleStore persists OHLCV series. The market-data provider uses it
// as a durable cache so a given (symbol, range) replays identical bars
// across runs.
type CandleStore interface {
	SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error)
	Close() error
}
