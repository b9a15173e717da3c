package marketdata

import (
	"sync"
	"time"

	"derivsim/internal/instruments"
	"derivsim/internal/models"
)

// chainTTL bounds how long a built options chain is served from cache.
const chainTTL = 60 * time.Second

// ChainService serves options chains built from live spot prices,
// cached per (underlying, expiry). The engine is single-threaded but
// the cache map is still lock-protected so the service stays safe when
// comparisons fan out across workers.
type ChainService struct {
	catalog  *instruments.Catalog
	provider Provider
	now      func() time.Time

	mu     sync.Mutex
	chains map[string]chainEntry
}

type chainEntry struct {
	chain *models.OptionChain
	asOf  time.Time
}

// NewChainService creates a chain service over a catalog and provider.
func NewChainService(catalog *instruments.Catalog, provider Provider) *ChainService {
	return &ChainService{
		catalog:  catalog,
		provider: provider,
		now:      time.Now,
		chains:   make(map[string]chainEntry),
	}
}

// SetClock overrides the service's clock.
func (s *ChainService) SetClock(now func() time.Time) {
	s.now = now
}

// OptionsChain returns the chain for an underlying and expiry, built at
// the current spot. A zero expiry selects the nearest available one.
func (s *ChainService) OptionsChain(underlying string, expiry time.Time) (*models.OptionChain, error) {
	if expiry.IsZero() {
		expiries, err := s.catalog.ExpiryDates(underlying)
		if err != nil {
			return nil, err
		}
		expiry = expiries[0]
	}

	key := underlying + "/" + expiry.Format("20060102")
	now := s.now()

	s.mu.Lock()
	if entry, ok := s.chains[key]; ok && now.Sub(entry.asOf) < chainTTL {
		s.mu.Unlock()
		return entry.chain, nil
	}
	s.mu.Unlock()

	spot := s.provider.SpotPrice(underlying)
	chain, err := s.catalog.OptionsChain(underlying, spot, expiry)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.chains[key] = chainEntry{chain: chain, asOf: now}
	s.mu.Unlock()

	return chain, nil
}
