package marketdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"derivsim/internal/instruments"
	"derivsim/pkg/utils"
)

func newTestProvider(seed int64) *SimulatedProvider {
	return NewSimulatedProvider(seed, 0.06, nil, zerolog.Nop())
}

func TestHistoricalBarsDeterministicForSeed(t *testing.T) {
	a := newTestProvider(42)
	b := newTestProvider(42)

	seriesA := a.HistoricalBars("NIFTY", 100)
	seriesB := b.HistoricalBars("NIFTY", 100)

	if !seriesA.Synthetic || !seriesB.Synthetic {
		t.Fatal("simulated series must be marked synthetic")
	}
	if len(seriesA.Candles) != len(seriesB.Candles) {
		t.Fatalf("lengths differ: %d vs %d", len(seriesA.Candles), len(seriesB.Candles))
	}
	for i := range seriesA.Candles {
		if seriesA.Candles[i].Close != seriesB.Candles[i].Close {
			t.Fatalf("closes diverge at bar %d: %v vs %v",
				i, seriesA.Candles[i].Close, seriesB.Candles[i].Close)
		}
	}
}

func TestHistoricalBarsDifferAcrossSymbols(t *testing.T) {
	p := newTestProvider(42)

	nifty := p.HistoricalBars("NIFTY", 50)
	sbin := p.HistoricalBars("SBIN", 50)

	same := true
	for i := range nifty.Candles {
		if nifty.Candles[i].Close != sbin.Candles[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different symbols produced identical series")
	}
}

func TestHistoricalBarsValidOHLC(t *testing.T) {
	p := newTestProvider(7)
	series := p.HistoricalBars("RELIANCE", 200)

	if len(series.Candles) < 200 {
		t.Fatalf("got %d bars, want >= 200", len(series.Candles))
	}
	for i, c := range series.Candles {
		if c.Low <= 0 {
			t.Errorf("bar %d: non-positive low %v", i, c.Low)
		}
		if c.High < c.Low {
			t.Errorf("bar %d: high %v < low %v", i, c.High, c.Low)
		}
		if c.Close > c.High || c.Close < c.Low {
			t.Errorf("bar %d: close %v outside [%v, %v]", i, c.Close, c.Low, c.High)
		}
		if i > 0 && !series.Candles[i-1].Timestamp.Before(c.Timestamp) {
			t.Errorf("bar %d: timestamps not increasing", i)
		}
	}
}

func TestSpotPriceCachedWithinTTL(t *testing.T) {
	p := newTestProvider(1)
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, utils.IndiaLocation)
	p.SetClock(func() time.Time { return clock })

	first := p.SpotPrice("NIFTY")
	second := p.SpotPrice("NIFTY")
	if first != second {
		t.Errorf("spot changed within TTL: %v vs %v", first, second)
	}

	clock = clock.Add(2 * time.Minute)
	third := p.SpotPrice("NIFTY")
	if third == first {
		t.Errorf("spot did not advance after TTL expiry")
	}
	// Walk step is bounded at +-2%.
	if third < first*0.98-1e-9 || third > first*1.02+1e-9 {
		t.Errorf("spot moved more than 2%%: %v -> %v", first, third)
	}
}

func TestSpotPriceUnknownSymbolFallsBack(t *testing.T) {
	p := newTestProvider(1)
	spot := p.SpotPrice("UNLISTED")
	if spot < 95 || spot > 105 {
		t.Errorf("fallback spot = %v, want near 100", spot)
	}
}

func TestFuturesPriceCarriesSpot(t *testing.T) {
	p := newTestProvider(1)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, utils.IndiaLocation)
	p.SetClock(func() time.Time { return now })

	spot := p.SpotPrice("NIFTY")
	fut := p.FuturesPrice("NIFTY", now.AddDate(0, 1, 0))
	if fut <= spot {
		t.Errorf("futures price %v should exceed spot %v under positive carry", fut, spot)
	}

	expired := p.FuturesPrice("NIFTY", now.AddDate(0, 0, -1))
	if expired != spot {
		t.Errorf("futures at expiry = %v, want spot %v", expired, spot)
	}
}

func TestChainServiceCachesWithinTTL(t *testing.T) {
	catalog := instruments.NewCatalog()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, utils.IndiaLocation)
	catalog.SetClock(func() time.Time { return now })

	provider := newTestProvider(3)
	provider.SetClock(func() time.Time { return now })

	svc := NewChainService(catalog, provider)
	clock := now
	svc.SetClock(func() time.Time { return clock })

	first, err := svc.OptionsChain("NIFTY", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.OptionsChain("NIFTY", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected cached chain within TTL")
	}

	clock = clock.Add(2 * time.Minute)
	third, err := svc.OptionsChain("NIFTY", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if third == first {
		t.Error("expected rebuilt chain after TTL expiry")
	}
}
