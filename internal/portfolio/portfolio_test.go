package portfolio

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"derivsim/internal/errors"
	"derivsim/internal/instruments"
	"derivsim/internal/marketdata"
	"derivsim/internal/models"
	"derivsim/internal/strategy"
	"derivsim/pkg/utils"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.March, 1, 10, 0, 0, 0, utils.IndiaLocation)
	}
}

func testManager() (*Manager, *instruments.Catalog, time.Time) {
	catalog := instruments.NewCatalog()
	catalog.SetClock(fixedClock())
	m := NewManager(catalog)
	m.SetClock(fixedClock())
	expiry := utils.AtExpiryTime(time.Date(2024, time.March, 28, 0, 0, 0, 0, utils.IndiaLocation))
	return m, catalog, expiry
}

func TestOpenPositionReservesMargin(t *testing.T) {
	m, catalog, expiry := testManager()
	fut, err := catalog.BuildFuture("NIFTY", 19500, expiry)
	if err != nil {
		t.Fatalf("BuildFuture: %v", err)
	}

	s := NewState(500000)
	next, pos, err := m.OpenPosition(s, Order{
		Instrument: fut,
		Side:       models.PositionBuy,
		Quantity:   1,
		Price:      19550,
		Spot:       19500,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	// NIFTY lot 50 at 10% margin.
	wantMargin := 19500.0 * 50 * 0.10
	if pos.MarginUsed != wantMargin {
		t.Errorf("MarginUsed = %.2f, want %.2f", pos.MarginUsed, wantMargin)
	}
	if next.MarginUsed != wantMargin {
		t.Errorf("state MarginUsed = %.2f, want %.2f", next.MarginUsed, wantMargin)
	}
	if next.AvailableMargin() != 500000-wantMargin {
		t.Errorf("AvailableMargin = %.2f, want %.2f", next.AvailableMargin(), 500000-wantMargin)
	}
	// The input state is untouched.
	if len(s.Positions) != 0 || s.MarginUsed != 0 {
		t.Error("OpenPosition mutated the input state")
	}
}

func TestOpenPositionRejectsOnInsufficientMargin(t *testing.T) {
	m, catalog, expiry := testManager()
	fut, err := catalog.BuildFuture("NIFTY", 19500, expiry)
	if err != nil {
		t.Fatalf("BuildFuture: %v", err)
	}

	s := NewState(50000)
	next, pos, err := m.OpenPosition(s, Order{
		Instrument: fut,
		Side:       models.PositionBuy,
		Quantity:   1,
		Price:      19550,
		Spot:       19500,
	})
	if !errors.Is(err, errors.ErrInsufficientMargin) {
		t.Fatalf("err = %v, want ErrInsufficientMargin", err)
	}
	var marginErr *errors.InsufficientMarginError
	if !errors.As(err, &marginErr) {
		t.Fatal("err does not unwrap to InsufficientMarginError")
	}
	if marginErr.Available != 50000 {
		t.Errorf("Available = %.2f, want 50000", marginErr.Available)
	}
	if marginErr.Shortfall() <= 0 {
		t.Errorf("Shortfall = %.2f, want positive", marginErr.Shortfall())
	}
	// Rejection leaves the state unchanged and opens nothing.
	if pos != nil || len(next.Positions) != 0 || next.MarginUsed != 0 {
		t.Error("rejected order altered the portfolio")
	}
}

func TestClosePositionRealizesPnL(t *testing.T) {
	m, catalog, expiry := testManager()
	fut, err := catalog.BuildFuture("NIFTY", 19500, expiry)
	if err != nil {
		t.Fatalf("BuildFuture: %v", err)
	}

	s := NewState(500000)
	s, pos, err := m.OpenPosition(s, Order{
		Instrument: fut, Side: models.PositionBuy, Quantity: 1, Price: 19550, Spot: 19500,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	s, realized, err := m.ClosePosition(s, pos.ID, 19650)
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if want := 100.0 * 50; realized != want {
		t.Errorf("realized = %.2f, want %.2f", realized, want)
	}
	if s.Cash != 500000+realized {
		t.Errorf("Cash = %.2f, want %.2f", s.Cash, 500000+realized)
	}
	if s.MarginUsed != 0 || len(s.Positions) != 0 {
		t.Errorf("margin/positions not released: %.2f / %d", s.MarginUsed, len(s.Positions))
	}
}

func TestSameContractOpensTwiceWithinOneTick(t *testing.T) {
	m, catalog, expiry := testManager()
	fut, err := catalog.BuildFuture("NIFTY", 19500, expiry)
	if err != nil {
		t.Fatalf("BuildFuture: %v", err)
	}

	// The fixed clock returns the same instant for both opens, so the
	// IDs cannot rely on the timestamp alone to stay distinct.
	order := Order{
		Instrument: fut, Side: models.PositionBuy, Quantity: 1, Price: 19550, Spot: 19500,
	}
	s := NewState(1000000)
	s, first, err := m.OpenPosition(s, order)
	if err != nil {
		t.Fatalf("first OpenPosition: %v", err)
	}
	s, second, err := m.OpenPosition(s, order)
	if err != nil {
		t.Fatalf("second OpenPosition: %v", err)
	}

	if first.ID == second.ID {
		t.Fatalf("duplicate position ID %q", first.ID)
	}
	if len(s.Positions) != 2 {
		t.Fatalf("len(Positions) = %d, want 2", len(s.Positions))
	}
	if want := first.MarginUsed + second.MarginUsed; s.MarginUsed != want {
		t.Errorf("MarginUsed = %.2f, want %.2f", s.MarginUsed, want)
	}

	// Closing both releases every rupee of margin.
	s, _, err = m.ClosePosition(s, first.ID, 19550)
	if err != nil {
		t.Fatalf("close first: %v", err)
	}
	s, _, err = m.ClosePosition(s, second.ID, 19550)
	if err != nil {
		t.Fatalf("close second: %v", err)
	}
	if s.MarginUsed != 0 || len(s.Positions) != 0 {
		t.Errorf("margin/positions not released: %.2f / %d", s.MarginUsed, len(s.Positions))
	}
}

func TestClosePositionUnknownID(t *testing.T) {
	m, _, _ := testManager()
	s := NewState(100000)
	if _, _, err := m.ClosePosition(s, "FUT_NOPE", 100); !errors.Is(err, errors.ErrPositionNotFound) {
		t.Errorf("err = %v, want ErrPositionNotFound", err)
	}
}

func TestShortPositionGainsWhenPriceFalls(t *testing.T) {
	m, catalog, expiry := testManager()
	opt, err := catalog.BuildOption("NIFTY", 19500, models.OptionCall, expiry, 19500)
	if err != nil {
		t.Fatalf("BuildOption: %v", err)
	}

	s := NewState(2000000)
	s, pos, err := m.OpenPosition(s, Order{
		Instrument: opt, Side: models.PositionSell, Quantity: 1, Price: opt.Premium, Spot: 19500,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	_, realized, err := m.ClosePosition(s, pos.ID, opt.Premium*0.5)
	if err != nil {
		t.Fatalf("ClosePosition: %v", err)
	}
	if want := opt.Premium * 0.5 * 50; realized != want {
		t.Errorf("realized = %.2f, want %.2f", realized, want)
	}
}

func TestDeployStrategyAtomic(t *testing.T) {
	m, catalog, expiry := testManager()
	provider := marketdata.NewSimulatedProvider(42, 0.06, nil, zerolog.Nop())
	provider.SetClock(fixedClock())
	builder := strategy.NewBuilder(catalog, provider)

	strat, err := builder.BullCallSpread("NIFTY", 19500, expiry, 19400, 19600, 1)
	if err != nil {
		t.Fatalf("BullCallSpread: %v", err)
	}

	s := NewState(1000000)
	s, ids, err := m.DeployStrategy(s, strat)
	if err != nil {
		t.Fatalf("DeployStrategy: %v", err)
	}
	if len(ids) != len(strat.Legs) {
		t.Fatalf("opened %d legs, want %d", len(ids), len(strat.Legs))
	}
	if s.MarginUsed != strat.MarginRequired {
		t.Errorf("MarginUsed = %.2f, want %.2f", s.MarginUsed, strat.MarginRequired)
	}

	// A portfolio that cannot carry the whole strategy opens no legs.
	poor := NewState(strat.MarginRequired / 2)
	poor, ids, err = m.DeployStrategy(poor, strat)
	if !errors.Is(err, errors.ErrInsufficientMargin) {
		t.Fatalf("err = %v, want ErrInsufficientMargin", err)
	}
	if len(ids) != 0 || len(poor.Positions) != 0 {
		t.Error("partial strategy deployment")
	}
}

func TestMarkPositionsAndSummary(t *testing.T) {
	m, catalog, expiry := testManager()
	fut, err := catalog.BuildFuture("NIFTY", 19500, expiry)
	if err != nil {
		t.Fatalf("BuildFuture: %v", err)
	}

	s := NewState(500000)
	s, pos, err := m.OpenPosition(s, Order{
		Instrument: fut, Side: models.PositionBuy, Quantity: 1, Price: 19550, Spot: 19500,
	})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	s = m.MarkPositions(s, map[string]float64{fut.Symbol(): 19700})
	marked := s.Positions[pos.ID]
	if want := 150.0 * 50; marked.UnrealizedPnL != want {
		t.Errorf("UnrealizedPnL = %.2f, want %.2f", marked.UnrealizedPnL, want)
	}

	sum := Summarize(s)
	if sum.OpenPositions != 1 {
		t.Errorf("OpenPositions = %d, want 1", sum.OpenPositions)
	}
	if sum.UnrealizedPnL != marked.UnrealizedPnL {
		t.Errorf("summary pnl = %.2f, want %.2f", sum.UnrealizedPnL, marked.UnrealizedPnL)
	}
	if sum.TotalValue != s.Cash+marked.UnrealizedPnL {
		t.Errorf("TotalValue = %.2f, want %.2f", sum.TotalValue, s.Cash+marked.UnrealizedPnL)
	}
	if sum.MarginUtilization <= 0 {
		t.Errorf("MarginUtilization = %.2f, want positive", sum.MarginUtilization)
	}
}
