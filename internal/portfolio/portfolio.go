// Package portfolio tracks cash, margin and open F&O positions. All
// operations take a State and return a new one; callers own the
// current state and there is no ambient session.
package portfolio

import (
	"fmt"
	"sync/atomic"
	"time"

	"derivsim/internal/errors"
	"derivsim/internal/instruments"
	"derivsim/internal/models"
	"derivsim/internal/strategy"
)

// Position is one open holding. CurrentPrice and UnrealizedPnL update
// on marking; everything else is fixed at entry.
type Position struct {
	ID            string
	Instrument    models.Instrument
	Side          models.PositionType
	Quantity      int
	EntryPrice    float64
	EntryTime     time.Time
	CurrentPrice  float64
	UnrealizedPnL float64
	MarginUsed    float64
}

// mark revalues the position at the given price.
func (p *Position) mark(price float64) {
	p.CurrentPrice = price
	units := float64(p.Quantity * p.Instrument.LotSize())
	if p.Side == models.PositionBuy {
		p.UnrealizedPnL = (price - p.EntryPrice) * units
	} else {
		p.UnrealizedPnL = (p.EntryPrice - price) * units
	}
}

// State is a portfolio snapshot. Operations never mutate a State in
// place; they copy, modify and return.
type State struct {
	InitialCapital float64
	Cash           float64
	MarginUsed     float64
	Positions      map[string]Position
}

// NewState creates a flat portfolio with the given starting capital.
func NewState(initialCapital float64) State {
	return State{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      map[string]Position{},
	}
}

// AvailableMargin is the cash not already pledged against positions.
func (s State) AvailableMargin() float64 {
	return s.Cash - s.MarginUsed
}

func (s State) clone() State {
	positions := make(map[string]Position, len(s.Positions))
	for id, p := range s.Positions {
		positions[id] = p
	}
	s.Positions = positions
	return s
}

// Order describes a position to open. Price is the fill price; Spot
// is the underlying level used for margining.
type Order struct {
	Instrument models.Instrument
	Side       models.PositionType
	Quantity   int
	Price      float64
	Spot       float64
}

// Manager applies orders to portfolio states, using the catalog for
// margin arithmetic. The clock is injectable for deterministic IDs
// and entry times. The sequence counter keeps IDs unique even when
// the same contract and side open twice within one clock tick.
type Manager struct {
	catalog *instruments.Catalog
	now     func() time.Time
	seq     atomic.Uint64
}

func NewManager(catalog *instruments.Catalog) *Manager {
	return &Manager{catalog: catalog, now: time.Now}
}

// SetClock overrides the manager's clock.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// OpenPosition checks margin and opens the ordered position. Orders
// either fill whole or are rejected; there are no partial fills.
func (m *Manager) OpenPosition(s State, o Order) (State, *Position, error) {
	if o.Quantity <= 0 {
		return s, nil, errors.NewValidationError("quantity", o.Quantity, "must be positive")
	}

	required := m.catalog.MarginRequirement(o.Instrument, o.Quantity, o.Side, o.Spot)
	available := s.AvailableMargin()
	if required > available {
		return s, nil, errors.NewInsufficientMarginError(required, available)
	}

	now := m.now()
	pos := Position{
		ID:           m.positionID(o.Instrument, o.Side, now),
		Instrument:   o.Instrument,
		Side:         o.Side,
		Quantity:     o.Quantity,
		EntryPrice:   o.Price,
		EntryTime:    now,
		CurrentPrice: o.Price,
		MarginUsed:   required,
	}

	next := s.clone()
	next.MarginUsed += required
	next.Positions[pos.ID] = pos
	return next, &pos, nil
}

// ClosePosition realizes the position's P&L into cash and releases
// its margin.
func (m *Manager) ClosePosition(s State, positionID string, closePrice float64) (State, float64, error) {
	pos, ok := s.Positions[positionID]
	if !ok {
		return s, 0, errors.Wrap(errors.ErrPositionNotFound, positionID)
	}

	pos.mark(closePrice)
	realized := pos.UnrealizedPnL

	next := s.clone()
	next.Cash += realized
	next.MarginUsed -= pos.MarginUsed
	delete(next.Positions, positionID)
	return next, realized, nil
}

// DeployStrategy opens every leg of a built strategy atomically: the
// whole margin requirement is checked up front and either all legs
// open or none do.
func (m *Manager) DeployStrategy(s State, strat *strategy.FOStrategy) (State, []string, error) {
	available := s.AvailableMargin()
	if strat.MarginRequired > available {
		return s, nil, errors.NewInsufficientMarginError(strat.MarginRequired, available)
	}

	next := s.clone()
	now := m.now()
	ids := make([]string, 0, len(strat.Legs))

	// The strategy-level margin already nets the legs against each
	// other, so it is apportioned rather than recomputed per leg.
	perLeg := strat.MarginRequired / float64(len(strat.Legs))
	for _, leg := range strat.Legs {
		pos := Position{
			ID:           m.positionID(leg.Instrument, leg.Position, now),
			Instrument:   leg.Instrument,
			Side:         leg.Position,
			Quantity:     leg.Quantity,
			EntryPrice:   leg.EntryPrice,
			EntryTime:    now,
			CurrentPrice: leg.EntryPrice,
			MarginUsed:   perLeg,
		}
		next.Positions[pos.ID] = pos
		ids = append(ids, pos.ID)
	}
	next.MarginUsed += strat.MarginRequired
	return next, ids, nil
}

// MarkPositions revalues every position at the supplied prices,
// keyed by contract symbol. Unknown symbols keep their last mark.
func (m *Manager) MarkPositions(s State, prices map[string]float64) State {
	next := s.clone()
	for id, pos := range next.Positions {
		price, ok := prices[pos.Instrument.Symbol()]
		if !ok {
			continue
		}
		pos.mark(price)
		next.Positions[id] = pos
	}
	return next
}

// Summary aggregates a state for display.
type Summary struct {
	Cash              float64
	MarginUsed        float64
	AvailableMargin   float64
	OpenPositions     int
	UnrealizedPnL     float64
	TotalValue        float64
	MarginUtilization float64
}

// Summarize computes the portfolio rollup.
func Summarize(s State) Summary {
	var unrealized float64
	for _, pos := range s.Positions {
		unrealized += pos.UnrealizedPnL
	}
	sum := Summary{
		Cash:            s.Cash,
		MarginUsed:      s.MarginUsed,
		AvailableMargin: s.AvailableMargin(),
		OpenPositions:   len(s.Positions),
		UnrealizedPnL:   unrealized,
		TotalValue:      s.Cash + unrealized,
	}
	if s.Cash > 0 {
		sum.MarginUtilization = s.MarginUsed / s.Cash * 100
	}
	return sum
}

func (m *Manager) positionID(inst models.Instrument, side models.PositionType, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s_%d", inst.Kind(), inst.Symbol(), side, now.Format("150405"), m.seq.Add(1))
}
