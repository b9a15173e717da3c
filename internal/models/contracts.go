package models

import (
	"fmt"
	"time"
)

// InstrumentKind distinguishes the contract variants an Instrument can be.
type InstrumentKind string

const (
	KindEquity  InstrumentKind = "EQUITY"
	KindFutures InstrumentKind = "FUTURES"
	KindOption  InstrumentKind = "OPTION"
)

// Instrument is the closed set of tradeable contract types. Consumers
// dispatch on Kind (or a type switch) rather than inheritance.
type Instrument interface {
	Kind() InstrumentKind
	LotSize() int
	Symbol() string
}

// Equity marks a plain underlying-stock position within a strategy.
type Equity struct {
	Underlying string
}

func (e Equity) Kind() InstrumentKind { return KindEquity }
func (e Equity) LotSize() int         { return 1 }
func (e Equity) Symbol() string       { return e.Underlying }

// FuturesContract represents a futures contract specification.
// Contracts are constructed on demand and immutable once built;
// re-pricing requires a new instance.
type FuturesContract struct {
	Underlying     string
	Expiry         time.Time
	Lot            int
	TickSize       float64
	MarginRequired float64
}

func (f *FuturesContract) Kind() InstrumentKind { return KindFutures }
func (f *FuturesContract) LotSize() int         { return f.Lot }

// Symbol returns the contract identifier, e.g. NIFTY250925FUT.
func (f *FuturesContract) Symbol() string {
	return fmt.Sprintf("%s%sFUT", f.Underlying, f.Expiry.Format("060102"))
}

// DaysToExpiry returns whole calendar days until expiry, relative to now.
func (f *FuturesContract) DaysToExpiry(now time.Time) int {
	return int(f.Expiry.Sub(now).Hours() / 24)
}

// IsExpired reports whether the contract has expired relative to now.
func (f *FuturesContract) IsExpired(now time.Time) bool {
	return f.DaysToExpiry(now) <= 0
}

func (f *FuturesContract) String() string {
	return fmt.Sprintf("%s %s FUT", f.Underlying, f.Expiry.Format("02Jan06"))
}

// OptionContract represents an option contract specification with its
// model-derived premium. Immutable once constructed.
type OptionContract struct {
	Underlying string
	Strike     float64
	Type       OptionType
	Expiry     time.Time
	Lot        int
	TickSize   float64
	Premium    float64

	// TimeToExpiry is the year fraction captured at construction time.
	// Revaluation passes reuse this stored value rather than recomputing.
	TimeToExpiry float64
}

func (o *OptionContract) Kind() InstrumentKind { return KindOption }
func (o *OptionContract) LotSize() int         { return o.Lot }

// Symbol returns the contract identifier, e.g. NIFTY25092519500CE.
func (o *OptionContract) Symbol() string {
	return fmt.Sprintf("%s%s%d%s", o.Underlying, o.Expiry.Format("060102"), int(o.Strike), o.suffix())
}

func (o *OptionContract) suffix() string {
	if o.Type == OptionCall {
		return "CE"
	}
	return "PE"
}

// IntrinsicValue returns the option's intrinsic value at the given spot.
func (o *OptionContract) IntrinsicValue(spot float64) float64 {
	if o.Type == OptionCall {
		if spot > o.Strike {
			return spot - o.Strike
		}
		return 0
	}
	if o.Strike > spot {
		return o.Strike - spot
	}
	return 0
}

// IsExpired reports whether the contract has expired relative to now.
func (o *OptionContract) IsExpired(now time.Time) bool {
	return o.Expiry.Sub(now).Hours()/24 <= 0
}

func (o *OptionContract) String() string {
	return fmt.Sprintf("%s %s %d %s", o.Underlying, o.Expiry.Format("02Jan06"), int(o.Strike), o.suffix())
}
