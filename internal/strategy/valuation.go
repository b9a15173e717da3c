package strategy

import (
	"derivsim/internal/models"
	"derivsim/internal/pricing"
)

// CalculatePnL marks every leg of the strategy to the given spot price
// and returns the aggregate. Options are repriced with Black-Scholes
// using the time to expiry captured when the contract was built;
// futures legs are marked at the provider's carry price. Short legs
// gain when prices fall.
func (b *Builder) CalculatePnL(s *FOStrategy, currentSpot float64) *Valuation {
	v := &Valuation{}

	for i, leg := range s.Legs {
		var current float64
		var pnl float64
		units := float64(leg.Quantity)

		switch inst := leg.Instrument.(type) {
		case models.Equity:
			current = currentSpot
			pnl = (current - leg.EntryPrice) * units
		case *models.FuturesContract:
			current = b.provider.FuturesPrice(s.Underlying, inst.Expiry)
			pnl = (current - leg.EntryPrice) * units * float64(inst.Lot)
		case *models.OptionContract:
			current = pricing.Price(currentSpot, inst.Strike, inst.TimeToExpiry,
				b.catalog.RiskFreeRate(), b.catalog.Volatility(), inst.Type)
			pnl = (current - leg.EntryPrice) * units * float64(inst.Lot)
		}
		if leg.Position == models.PositionSell {
			pnl = -pnl
		}

		leg.CurrentPrice = current
		leg.PnL = pnl
		v.Legs = append(v.Legs, LegValuation{LegIndex: i, CurrentPrice: current, PnL: pnl})
		v.TotalPnL += pnl
		v.TotalCurrentValue += current * units * float64(leg.Instrument.LotSize())
	}

	if s.MarginRequired > 0 {
		v.PnLPercent = v.TotalPnL / s.MarginRequired * 100
	}
	return v
}

const payoffPoints = 100

// PayoffAtExpiry evaluates the strategy's terminal payoff over a grid
// of underlying prices. A zero range defaults to 70%..130% of the
// current spot. Options settle at intrinsic value; futures and equity
// legs settle linearly.
func (b *Builder) PayoffAtExpiry(s *FOStrategy, priceLow, priceHigh float64) *Payoff {
	if priceLow <= 0 || priceHigh <= 0 || priceHigh <= priceLow {
		spot := b.provider.SpotPrice(s.Underlying)
		priceLow = spot * 0.7
		priceHigh = spot * 1.3
	}

	p := &Payoff{
		MaxProfit:  s.MaxProfit,
		MaxLoss:    s.MaxLoss,
		Breakevens: s.Breakevens,
		Prices:     make([]float64, payoffPoints),
		Payoffs:    make([]float64, payoffPoints),
	}

	step := (priceHigh - priceLow) / float64(payoffPoints-1)
	for i := 0; i < payoffPoints; i++ {
		price := priceLow + step*float64(i)
		p.Prices[i] = price
		p.Payoffs[i] = s.payoffAt(price)
	}
	return p
}

// payoffAt is the strategy's total payoff with the underlying settling
// at the given price.
func (s *FOStrategy) payoffAt(settle float64) float64 {
	var total float64
	for _, leg := range s.Legs {
		var pnl float64
		units := float64(leg.Quantity)

		switch inst := leg.Instrument.(type) {
		case models.Equity:
			pnl = (settle - leg.EntryPrice) * units
		case *models.FuturesContract:
			pnl = (settle - leg.EntryPrice) * units * float64(inst.Lot)
		case *models.OptionContract:
			pnl = (inst.IntrinsicValue(settle) - leg.EntryPrice) * units * float64(inst.Lot)
		}
		if leg.Position == models.PositionSell {
			pnl = -pnl
		}
		total += pnl
	}
	return total
}
