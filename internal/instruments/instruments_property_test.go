package instruments

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"derivsim/pkg/utils"
)

// Property: the strike ladder is strictly increasing and contains
// exactly one strike within half the strike interval of the rounded
// spot (the ATM strike).
func TestProperty_StrikeLadderShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)
	c := NewCatalog()

	underlyings := c.Underlyings()

	properties.Property("ladder is monotonic with a unique ATM strike", prop.ForAll(
		func(spot float64, idx int) bool {
			underlying := underlyings[idx%len(underlyings)]
			spec, err := c.Spec(underlying)
			if err != nil {
				return false
			}

			// Skip spots sitting exactly between two strikes; the
			// rounding direction there is a tie, not a property.
			ratio := spot / spec.StrikeInterval
			if math.Abs(ratio-math.Floor(ratio)-0.5) < 1e-9 {
				return true
			}

			strikes, err := c.StrikeLadder(underlying, spot)
			if err != nil || len(strikes) == 0 {
				return false
			}

			for i := 1; i < len(strikes); i++ {
				if strikes[i] <= strikes[i-1] {
					return false
				}
			}

			atmCount := 0
			for _, s := range strikes {
				if math.Abs(s-spot) <= spec.StrikeInterval/2 {
					atmCount++
				}
			}
			return atmCount == 1
		},
		gen.Float64Range(200.0, 50000.0),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// Property: the expiry calendar is never empty and never contains a
// past date, for arbitrary evaluation times.
func TestProperty_ExpiryDatesAlwaysFuture(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	base := time.Date(2020, 1, 1, 0, 0, 0, 0, utils.IndiaLocation)

	properties.Property("expiries are future-only and non-empty", prop.ForAll(
		func(offsetHours int64, idx int) bool {
			now := base.Add(time.Duration(offsetHours) * time.Hour)

			c := NewCatalog()
			c.SetClock(func() time.Time { return now })

			underlyings := c.Underlyings()
			underlying := underlyings[idx%len(underlyings)]

			expiries, err := c.ExpiryDates(underlying)
			if err != nil || len(expiries) == 0 {
				return false
			}
			for _, exp := range expiries {
				if !exp.After(now) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 10*365*24),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
