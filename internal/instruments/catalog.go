// Package instruments manages F&O contract specifications, expiry
// calendars, strike ladders and contract construction.
package instruments

import (
	"math"
	"sort"
	"time"

	"derivsim/internal/errors"
	"derivsim/internal/models"
	"derivsim/internal/pricing"
	"derivsim/pkg/utils"
)

// Spec holds the contract specification for one underlying.
type Spec struct {
	Underlying     string
	LotSize        int
	TickSize       float64
	MarginPercent  float64
	StrikeInterval float64
	IsIndex        bool
}

// Catalog builds futures and options contracts from per-underlying
// specifications. The clock is injectable so expiry and time-to-expiry
// calculations are deterministic in tests.
type Catalog struct {
	specs        map[string]Spec
	riskFreeRate float64
	volatility   float64
	now          func() time.Time
}

// NewCatalog creates a catalog with the NSE F&O specifications.
func NewCatalog() *Catalog {
	return NewCatalogWithSpecs(defaultSpecs(), pricing.DefaultRiskFreeRate, pricing.DefaultVolatility)
}

// NewCatalogWithSpecs creates a catalog with custom specifications and
// pricing parameters.
func NewCatalogWithSpecs(specs map[string]Spec, riskFreeRate, volatility float64) *Catalog {
	return &Catalog{
		specs:        specs,
		riskFreeRate: riskFreeRate,
		volatility:   volatility,
		now:          func() time.Time { return time.Now().In(utils.IndiaLocation) },
	}
}

// SetClock overrides the catalog's clock.
func (c *Catalog) SetClock(now func() time.Time) {
	c.now = now
}

// RiskFreeRate returns the configured risk-free rate.
func (c *Catalog) RiskFreeRate() float64 {
	return c.riskFreeRate
}

// Volatility returns the configured default volatility.
func (c *Catalog) Volatility() float64 {
	return c.volatility
}

// Spec returns the contract specification for an underlying.
func (c *Catalog) Spec(underlying string) (Spec, error) {
	spec, ok := c.specs[underlying]
	if !ok {
		return Spec{}, errors.NewUnknownUnderlyingError(underlying)
	}
	return spec, nil
}

// Underlyings returns the configured underlyings, sorted.
func (c *Catalog) Underlyings() []string {
	names := make([]string, 0, len(c.specs))
	for name := range c.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpiryDates returns the available expiry dates for an underlying:
// the last Thursday of each of the next six calendar months at the
// exchange close, plus the next eight weekly Thursdays for index
// underlyings. The result is sorted, future-only and never empty
// (fallback: next Thursday).
func (c *Catalog) ExpiryDates(underlying string) ([]time.Time, error) {
	spec, err := c.Spec(underlying)
	if err != nil {
		return nil, err
	}

	now := c.now()
	seen := make(map[time.Time]bool)
	var expiries []time.Time

	add := func(t time.Time) {
		if t.After(now) && !seen[t] {
			seen[t] = true
			expiries = append(expiries, t)
		}
	}

	for i := 0; i < 6; i++ {
		year, month := now.Year(), now.Month()+time.Month(i)
		for month > 12 {
			month -= 12
			year++
		}
		add(utils.LastThursdayOfMonth(year, month, now.Location()))
	}

	if spec.IsIndex {
		weekly := utils.NextThursday(now)
		for week := 0; week < 8; week++ {
			add(weekly.AddDate(0, 0, week*7))
		}
	}

	if len(expiries) == 0 {
		expiries = append(expiries, utils.NextThursday(now))
	}

	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	return expiries, nil
}

// StrikeLadder generates the strike prices offered around the spot:
// spot rounded to the underlying's strike interval, then ten strikes
// below and ten above, dropping non-positive values.
func (c *Catalog) StrikeLadder(underlying string, spot float64) ([]float64, error) {
	spec, err := c.Spec(underlying)
	if err != nil {
		return nil, err
	}

	base := math.Round(spot/spec.StrikeInterval) * spec.StrikeInterval

	var strikes []float64
	for i := -10; i <= 10; i++ {
		strike := base + float64(i)*spec.StrikeInterval
		if strike > 0 {
			strikes = append(strikes, strike)
		}
	}
	return strikes, nil
}

// BuildOption constructs an option contract with its Black-Scholes
// premium at the given spot.
func (c *Catalog) BuildOption(underlying string, strike float64, optType models.OptionType, expiry time.Time, spot float64) (*models.OptionContract, error) {
	spec, err := c.Spec(underlying)
	if err != nil {
		return nil, err
	}

	tte := utils.YearFraction(c.now(), expiry)
	premium := pricing.Price(spot, strike, tte, c.riskFreeRate, c.volatility, optType)

	return &models.OptionContract{
		Underlying:   underlying,
		Strike:       strike,
		Type:         optType,
		Expiry:       expiry,
		Lot:          spec.LotSize,
		TickSize:     spec.TickSize,
		Premium:      premium,
		TimeToExpiry: tte,
	}, nil
}

// BuildFuture constructs a futures contract. Margin is the configured
// percentage of contract value at the given spot.
func (c *Catalog) BuildFuture(underlying string, spot float64, expiry time.Time) (*models.FuturesContract, error) {
	spec, err := c.Spec(underlying)
	if err != nil {
		return nil, err
	}

	contractValue := spot * float64(spec.LotSize)

	return &models.FuturesContract{
		Underlying:     underlying,
		Expiry:         expiry,
		Lot:            spec.LotSize,
		TickSize:       spec.TickSize,
		MarginRequired: contractValue * spec.MarginPercent / 100,
	}, nil
}

// OptionsChain builds the full chain for an underlying and expiry: one
// call and one put per ladder strike, each annotated with Greeks,
// intrinsic value and time value.
func (c *Catalog) OptionsChain(underlying string, spot float64, expiry time.Time) (*models.OptionChain, error) {
	strikes, err := c.StrikeLadder(underlying, spot)
	if err != nil {
		return nil, err
	}

	chain := &models.OptionChain{
		Underlying: underlying,
		SpotPrice:  spot,
		Expiry:     expiry,
	}

	for _, strike := range strikes {
		call, err := c.BuildOption(underlying, strike, models.OptionCall, expiry, spot)
		if err != nil {
			return nil, err
		}
		put, err := c.BuildOption(underlying, strike, models.OptionPut, expiry, spot)
		if err != nil {
			return nil, err
		}

		callIntrinsic := call.IntrinsicValue(spot)
		putIntrinsic := put.IntrinsicValue(spot)

		chain.Calls = append(chain.Calls, models.ChainEntry{
			Contract:       call,
			Greeks:         pricing.ComputeGreeks(spot, strike, call.TimeToExpiry, c.riskFreeRate, c.volatility, models.OptionCall),
			IntrinsicValue: callIntrinsic,
			TimeValue:      call.Premium - callIntrinsic,
		})
		chain.Puts = append(chain.Puts, models.ChainEntry{
			Contract:       put,
			Greeks:         pricing.ComputeGreeks(spot, strike, put.TimeToExpiry, c.riskFreeRate, c.volatility, models.OptionPut),
			IntrinsicValue: putIntrinsic,
			TimeValue:      put.Premium - putIntrinsic,
		})
	}

	return chain, nil
}
