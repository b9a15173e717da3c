// Package pricing implements Black-Scholes option pricing and Greeks.
package pricing

import (
	"math"

	"derivsim/internal/models"
)

// Defaults used when the caller has no better estimate.
const (
	DefaultRiskFreeRate = 0.06
	DefaultVolatility   = 0.25
)

// Intrinsic returns the option's intrinsic value at the given spot.
func Intrinsic(spot, strike float64, optType models.OptionType) float64 {
	if optType == models.OptionCall {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

// Price calculates the Black-Scholes price of a European option.
//
// At or past expiry (timeToExpiry <= 0) the exact terminal boundary
// condition applies: the intrinsic value, with no volatility term.
// Inputs outside the model's numeric domain (non-positive spot, strike
// or volatility) degrade to the intrinsic value instead of failing;
// pricing must never crash the caller. The result is clamped to >= 0.
func Price(spot, strike, timeToExpiry, riskFreeRate, volatility float64, optType models.OptionType) float64 {
	if timeToExpiry <= 0 {
		return Intrinsic(spot, strike, optType)
	}

	d1, d2, ok := dValues(spot, strike, timeToExpiry, riskFreeRate, volatility)
	if !ok {
		return Intrinsic(spot, strike, optType)
	}

	var price float64
	if optType == models.OptionCall {
		price = spot*normCDF(d1) - strike*math.Exp(-riskFreeRate*timeToExpiry)*normCDF(d2)
	} else {
		price = strike*math.Exp(-riskFreeRate*timeToExpiry)*normCDF(-d2) - spot*normCDF(-d1)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Intrinsic(spot, strike, optType)
	}
	return math.Max(0, price)
}

// ComputeGreeks calculates delta, gamma, theta and vega.
//
// Theta is per calendar day and vega per 1% volatility change. At or
// past expiry, and on numeric-domain failure, all Greeks are zero.
// Delta and gamma are rounded to 4 decimal places, theta and vega to 2;
// callers compare against these rounded values.
func ComputeGreeks(spot, strike, timeToExpiry, riskFreeRate, volatility float64, optType models.OptionType) models.Greeks {
	if timeToExpiry <= 0 {
		return models.Greeks{}
	}

	d1, d2, ok := dValues(spot, strike, timeToExpiry, riskFreeRate, volatility)
	if !ok {
		return models.Greeks{}
	}

	var delta float64
	if optType == models.OptionCall {
		delta = normCDF(d1)
	} else {
		delta = normCDF(d1) - 1
	}

	gamma := normPDF(d1) / (spot * volatility * math.Sqrt(timeToExpiry))

	decay := -spot * normPDF(d1) * volatility / (2 * math.Sqrt(timeToExpiry))
	carry := riskFreeRate * strike * math.Exp(-riskFreeRate*timeToExpiry)

	var theta float64
	if optType == models.OptionCall {
		theta = (decay - carry*normCDF(d2)) / 365
	} else {
		theta = (decay + carry*normCDF(-d2)) / 365
	}

	vega := spot * normPDF(d1) * math.Sqrt(timeToExpiry) / 100

	g := models.Greeks{
		Delta: round(delta, 4),
		Gamma: round(gamma, 4),
		Theta: round(theta, 2),
		Vega:  round(vega, 2),
	}
	if math.IsNaN(g.Delta) || math.IsNaN(g.Gamma) || math.IsNaN(g.Theta) || math.IsNaN(g.Vega) {
		return models.Greeks{}
	}
	return g
}

// ImpliedVolatility estimates the volatility implied by a market price
// with a linear scan from 10% to 100% in 1% steps. Returns the default
// volatility when no candidate matches within tolerance.
func ImpliedVolatility(spot, strike, timeToExpiry, riskFreeRate, marketPrice float64, optType models.OptionType) float64 {
	const tolerance = 0.01
	for iv := 0.10; iv < 1.0; iv += 0.01 {
		theoretical := Price(spot, strike, timeToExpiry, riskFreeRate, iv, optType)
		if math.Abs(theoretical-marketPrice) < tolerance {
			return iv
		}
	}
	return DefaultVolatility
}

// dValues computes the Black-Scholes d1/d2 terms. ok is false when the
// inputs are outside the model's numeric domain.
func dValues(spot, strike, timeToExpiry, riskFreeRate, volatility float64) (d1, d2 float64, ok bool) {
	if spot <= 0 || strike <= 0 || volatility <= 0 {
		return 0, 0, false
	}

	sigmaRootT := volatility * math.Sqrt(timeToExpiry)
	d1 = (math.Log(spot/strike) + (riskFreeRate+0.5*volatility*volatility)*timeToExpiry) / sigmaRootT
	d2 = d1 - sigmaRootT

	if math.IsNaN(d1) || math.IsInf(d1, 0) {
		return 0, 0, false
	}
	return d1, d2, true
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normPDF is the standard normal probability density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
