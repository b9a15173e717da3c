// Package strategy composes contracts into multi-leg F&O strategies
// and evaluates their payoff and mark-to-market P&L.
package strategy

import (
	"time"

	"derivsim/internal/models"
)

// Type identifies a known strategy shape.
type Type string

const (
	TypeCoveredCall    Type = "COVERED_CALL"
	TypeProtectivePut  Type = "PROTECTIVE_PUT"
	TypeBullCallSpread Type = "BULL_CALL_SPREAD"
	TypeBearPutSpread  Type = "BEAR_PUT_SPREAD"
	TypeStraddle       Type = "STRADDLE"
	TypeIronCondor     Type = "IRON_CONDOR"
	TypeFuturesLong    Type = "FUTURES_LONG"
	TypeFuturesShort   Type = "FUTURES_SHORT"
)

// Leg is one position within a multi-leg strategy. CurrentPrice and
// PnL are the only mutable fields; they are refreshed on each
// valuation pass.
type Leg struct {
	Instrument   models.Instrument
	Position     models.PositionType
	Quantity     int
	EntryPrice   float64
	CurrentPrice float64
	PnL          float64
}

// FOStrategy is a named multi-leg strategy with its analytically
// derived risk profile. MaxProfit and MaxLoss use +Inf for unbounded.
// NetPremium is positive when premium was paid (debit) and negative
// when received (credit). Built once; only leg valuations mutate.
type FOStrategy struct {
	Name           string
	Type           Type
	Legs           []*Leg
	Underlying     string
	Expiry         time.Time
	MaxProfit      float64
	MaxLoss        float64
	Breakevens     []float64
	NetPremium     float64
	MarginRequired float64
}

// LegValuation is the per-leg outcome of a valuation pass.
type LegValuation struct {
	LegIndex     int
	CurrentPrice float64
	PnL          float64
}

// Valuation is the result of marking a strategy to a spot price.
type Valuation struct {
	TotalPnL          float64
	TotalCurrentValue float64
	PnLPercent        float64
	Legs              []LegValuation
}

// Payoff holds the strategy's payoff-at-expiry curve over a price range.
type Payoff struct {
	Prices     []float64
	Payoffs    []float64
	MaxProfit  float64
	MaxLoss    float64
	Breakevens []float64
}
