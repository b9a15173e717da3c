// Package models provides domain models for the derivatives simulator.
package models

import (
	"time"
)

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// PositionType represents the side of a position or leg.
type PositionType string

const (
	PositionBuy  PositionType = "BUY"
	PositionSell PositionType = "SELL"
)

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Quote represents a market quote for an underlying.
type Quote struct {
	Symbol        string
	LTP           float64
	Change        float64
	ChangePercent float64
	Timestamp     time.Time
}

// Greeks represents option price sensitivities.
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
}

// ChainEntry is one option in a chain, annotated with valuation detail.
type ChainEntry struct {
	Contract       *OptionContract
	Greeks         Greeks
	IntrinsicValue float64
	TimeValue      float64
}

// OptionChain represents a full chain for one underlying and expiry.
type OptionChain struct {
	Underlying string
	SpotPrice  float64
	Expiry     time.Time
	Calls      []ChainEntry
	Puts       []ChainEntry
}

// Signal represents a trading signal emitted during a backtest.
type Signal struct {
	Date   time.Time
	Action PositionType
	Price  float64
	Reason string
}

// Trade represents a simulated round-trip trade.
// A Trade is created open and mutated exactly once by Close; it is
// treated as immutable afterwards.
type Trade struct {
	EntryDate    time.Time
	EntryPrice   float64
	Quantity     int
	Side         PositionType
	ExitDate     time.Time
	ExitPrice    float64
	PnL          float64
	PnLPercent   float64
	DurationDays int
	IsClosed     bool
}

// Close closes the trade and computes its P&L.
func (t *Trade) Close(exitDate time.Time, exitPrice float64) {
	t.ExitDate = exitDate
	t.ExitPrice = exitPrice
	t.IsClosed = true

	if t.Side == PositionBuy {
		t.PnL = (exitPrice - t.EntryPrice) * float64(t.Quantity)
	} else {
		t.PnL = (t.EntryPrice - exitPrice) * float64(t.Quantity)
	}

	if t.EntryPrice > 0 && t.Quantity > 0 {
		t.PnLPercent = t.PnL / (t.EntryPrice * float64(t.Quantity)) * 100
	}
	t.DurationDays = int(exitDate.Sub(t.EntryDate).Hours() / 24)
}
