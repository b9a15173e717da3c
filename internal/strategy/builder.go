package strategy

import (
	"math"
	"time"

	"derivsim/internal/errors"
	"derivsim/internal/instruments"
	"derivsim/internal/marketdata"
	"derivsim/internal/models"
)

// Builder constructs strategies from live catalog contracts. Premiums
// come from the catalog's pricing parameters; spot and futures prices
// come from the market data provider.
type Builder struct {
	catalog  *instruments.Catalog
	provider marketdata.Provider
}

func NewBuilder(catalog *instruments.Catalog, provider marketdata.Provider) *Builder {
	return &Builder{catalog: catalog, provider: provider}
}

// BullCallSpread buys the lower strike call and sells the upper. Net
// debit strategy with both profit and loss capped by the strikes.
func (b *Builder) BullCallSpread(underlying string, spot float64, expiry time.Time, lowerStrike, upperStrike float64, quantity int) (*FOStrategy, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if lowerStrike >= upperStrike {
		return nil, errors.Wrapf(errors.ErrInvalidStrikes, "bull call spread needs lower < upper, got %.2f >= %.2f", lowerStrike, upperStrike)
	}
	longCall, err := b.catalog.BuildOption(underlying, lowerStrike, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}
	shortCall, err := b.catalog.BuildOption(underlying, upperStrike, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := longCall.LotSize()
	units := float64(quantity * lot)
	netDebit := (longCall.Premium - shortCall.Premium) * units
	maxProfit := (upperStrike-lowerStrike)*units - netDebit

	return &FOStrategy{
		Name:       "Bull Call Spread",
		Type:       TypeBullCallSpread,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: longCall, Position: models.PositionBuy, Quantity: quantity, EntryPrice: longCall.Premium},
			{Instrument: shortCall, Position: models.PositionSell, Quantity: quantity, EntryPrice: shortCall.Premium},
		},
		MaxProfit:      maxProfit,
		MaxLoss:        netDebit,
		Breakevens:     []float64{lowerStrike + netDebit/units},
		NetPremium:     netDebit,
		MarginRequired: netDebit,
	}, nil
}

// BearPutSpread buys the upper strike put and sells the lower.
func (b *Builder) BearPutSpread(underlying string, spot float64, expiry time.Time, lowerStrike, upperStrike float64, quantity int) (*FOStrategy, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if lowerStrike >= upperStrike {
		return nil, errors.Wrapf(errors.ErrInvalidStrikes, "bear put spread needs lower < upper, got %.2f >= %.2f", lowerStrike, upperStrike)
	}
	longPut, err := b.catalog.BuildOption(underlying, upperStrike, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}
	shortPut, err := b.catalog.BuildOption(underlying, lowerStrike, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := longPut.LotSize()
	units := float64(quantity * lot)
	netDebit := (longPut.Premium - shortPut.Premium) * units
	maxProfit := (upperStrike-lowerStrike)*units - netDebit

	return &FOStrategy{
		Name:       "Bear Put Spread",
		Type:       TypeBearPutSpread,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: longPut, Position: models.PositionBuy, Quantity: quantity, EntryPrice: longPut.Premium},
			{Instrument: shortPut, Position: models.PositionSell, Quantity: quantity, EntryPrice: shortPut.Premium},
		},
		MaxProfit:      maxProfit,
		MaxLoss:        netDebit,
		Breakevens:     []float64{upperStrike - netDebit/units},
		NetPremium:     netDebit,
		MarginRequired: netDebit,
	}, nil
}

// Straddle buys (or sells) a call and a put at the same strike. A long
// straddle risks only the premium paid; a short straddle has unbounded
// loss and is margined at twice the premium received.
func (b *Builder) Straddle(underlying string, spot float64, expiry time.Time, strike float64, quantity int, side models.PositionType) (*FOStrategy, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	call, err := b.catalog.BuildOption(underlying, strike, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}
	put, err := b.catalog.BuildOption(underlying, strike, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := call.LotSize()
	units := float64(quantity * lot)
	totalPremium := (call.Premium + put.Premium) * units
	perUnit := totalPremium / units

	s := &FOStrategy{
		Type:       TypeStraddle,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: call, Position: side, Quantity: quantity, EntryPrice: call.Premium},
			{Instrument: put, Position: side, Quantity: quantity, EntryPrice: put.Premium},
		},
		Breakevens: []float64{strike - perUnit, strike + perUnit},
	}
	if side == models.PositionBuy {
		s.Name = "Long Straddle"
		s.MaxProfit = math.Inf(1)
		s.MaxLoss = totalPremium
		s.NetPremium = totalPremium
		s.MarginRequired = totalPremium
	} else {
		s.Name = "Short Straddle"
		s.MaxProfit = totalPremium
		s.MaxLoss = math.Inf(1)
		s.NetPremium = -totalPremium
		s.MarginRequired = totalPremium * 2
	}
	return s, nil
}

// IronCondor sells an OTM put spread and an OTM call spread. Strikes
// must satisfy putLower < putUpper < callLower < callUpper. Net credit
// strategy; the worst case is the narrower wing width less the credit.
func (b *Builder) IronCondor(underlying string, spot float64, expiry time.Time, putLower, putUpper, callLower, callUpper float64, quantity int) (*FOStrategy, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	if !(putLower < putUpper && putUpper < callLower && callLower < callUpper) {
		return nil, errors.Wrapf(errors.ErrInvalidStrikes, "iron condor needs putLower < putUpper < callLower < callUpper, got %.2f %.2f %.2f %.2f", putLower, putUpper, callLower, callUpper)
	}
	longPut, err := b.catalog.BuildOption(underlying, putLower, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}
	shortPut, err := b.catalog.BuildOption(underlying, putUpper, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}
	shortCall, err := b.catalog.BuildOption(underlying, callLower, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}
	longCall, err := b.catalog.BuildOption(underlying, callUpper, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := longPut.LotSize()
	units := float64(quantity * lot)
	netCredit := (shortPut.Premium + shortCall.Premium - longPut.Premium - longCall.Premium) * units
	narrowerWidth := math.Min(putUpper-putLower, callUpper-callLower)
	perUnit := netCredit / units

	return &FOStrategy{
		Name:       "Iron Condor",
		Type:       TypeIronCondor,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: longPut, Position: models.PositionBuy, Quantity: quantity, EntryPrice: longPut.Premium},
			{Instrument: shortPut, Position: models.PositionSell, Quantity: quantity, EntryPrice: shortPut.Premium},
			{Instrument: shortCall, Position: models.PositionSell, Quantity: quantity, EntryPrice: shortCall.Premium},
			{Instrument: longCall, Position: models.PositionBuy, Quantity: quantity, EntryPrice: longCall.Premium},
		},
		MaxProfit:      netCredit,
		MaxLoss:        narrowerWidth*units - netCredit,
		Breakevens:     []float64{putUpper - perUnit, callLower + perUnit},
		NetPremium:     -netCredit,
		MarginRequired: narrowerWidth*units - netCredit,
	}, nil
}

// CoveredCall holds stock and sells calls against it, one lot of calls
// per full lot of stock.
func (b *Builder) CoveredCall(underlying string, spot float64, expiry time.Time, callStrike float64, stockQuantity int) (*FOStrategy, error) {
	if stockQuantity <= 0 {
		return nil, errors.NewValidationError("stock_quantity", stockQuantity, "must be positive")
	}
	call, err := b.catalog.BuildOption(underlying, callStrike, models.OptionCall, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := call.LotSize()
	callLots := stockQuantity / lot
	premiumReceived := call.Premium * float64(callLots*lot)
	shares := float64(stockQuantity)

	return &FOStrategy{
		Name:       "Covered Call",
		Type:       TypeCoveredCall,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: models.Equity{Underlying: underlying}, Position: models.PositionBuy, Quantity: stockQuantity, EntryPrice: spot},
			{Instrument: call, Position: models.PositionSell, Quantity: callLots, EntryPrice: call.Premium},
		},
		MaxProfit:      (callStrike-spot)*shares + premiumReceived,
		MaxLoss:        spot*shares - premiumReceived,
		Breakevens:     []float64{spot - premiumReceived/shares},
		NetPremium:     -premiumReceived,
		MarginRequired: spot * shares,
	}, nil
}

// ProtectivePut holds stock and buys puts as downside insurance.
func (b *Builder) ProtectivePut(underlying string, spot float64, expiry time.Time, putStrike float64, stockQuantity int) (*FOStrategy, error) {
	if stockQuantity <= 0 {
		return nil, errors.NewValidationError("stock_quantity", stockQuantity, "must be positive")
	}
	put, err := b.catalog.BuildOption(underlying, putStrike, models.OptionPut, expiry, spot)
	if err != nil {
		return nil, err
	}

	lot := put.LotSize()
	putLots := stockQuantity / lot
	premiumPaid := put.Premium * float64(putLots*lot)
	shares := float64(stockQuantity)

	return &FOStrategy{
		Name:       "Protective Put",
		Type:       TypeProtectivePut,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: models.Equity{Underlying: underlying}, Position: models.PositionBuy, Quantity: stockQuantity, EntryPrice: spot},
			{Instrument: put, Position: models.PositionBuy, Quantity: putLots, EntryPrice: put.Premium},
		},
		MaxProfit:      math.Inf(1),
		MaxLoss:        (spot-putStrike)*shares + premiumPaid,
		Breakevens:     []float64{spot + premiumPaid/shares},
		NetPremium:     premiumPaid,
		MarginRequired: spot*shares + premiumPaid,
	}, nil
}

// FuturesPosition opens an outright long or short futures position at
// the provider's cost-of-carry price.
func (b *Builder) FuturesPosition(underlying string, expiry time.Time, side models.PositionType, quantity int) (*FOStrategy, error) {
	if quantity <= 0 {
		return nil, errors.NewValidationError("quantity", quantity, "must be positive")
	}
	spot := b.provider.SpotPrice(underlying)
	fut, err := b.catalog.BuildFuture(underlying, spot, expiry)
	if err != nil {
		return nil, err
	}
	futPrice := b.provider.FuturesPrice(underlying, expiry)

	typ := TypeFuturesLong
	name := "Long Futures"
	if side == models.PositionSell {
		typ = TypeFuturesShort
		name = "Short Futures"
	}
	return &FOStrategy{
		Name:       name,
		Type:       typ,
		Underlying: underlying,
		Expiry:     expiry,
		Legs: []*Leg{
			{Instrument: fut, Position: side, Quantity: quantity, EntryPrice: futPrice},
		},
		MaxProfit:      math.Inf(1),
		MaxLoss:        math.Inf(1),
		Breakevens:     []float64{futPrice},
		NetPremium:     0,
		MarginRequired: fut.MarginRequired * float64(quantity),
	}, nil
}
