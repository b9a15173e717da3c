package instruments

import (
	"math"

	"derivsim/internal/models"
)

// MarginRequirement calculates the margin for a position in the given
// instrument at the current spot.
//
// Futures require their per-lot margin times the absolute quantity.
// Long options pay the full premium. Short options use a premium-
// received-plus-percentage-of-notional approximation (spot-based for
// calls, strike-or-spot based for puts). This is NOT exchange SPAN
// margin; real-money accuracy would need the exchange's risk arrays.
func (c *Catalog) MarginRequirement(inst models.Instrument, quantity int, side models.PositionType, spot float64) float64 {
	absQty := quantity
	if absQty < 0 {
		absQty = -absQty
	}

	switch contract := inst.(type) {
	case *models.FuturesContract:
		return contract.MarginRequired * float64(absQty)

	case *models.OptionContract:
		exposure := float64(absQty) * float64(contract.Lot)
		if side == models.PositionBuy {
			return contract.Premium * exposure
		}

		premiumReceived := contract.Premium * exposure
		if contract.Type == models.OptionCall {
			return math.Max(
				premiumReceived+0.10*spot*exposure,
				premiumReceived+0.05*spot*exposure,
			)
		}
		return math.Max(
			premiumReceived+0.10*contract.Strike*exposure,
			premiumReceived+0.05*spot*exposure,
		)

	case models.Equity:
		return spot * float64(absQty)

	default:
		return 0
	}
}
