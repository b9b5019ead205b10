package exchange

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	travel "go-travel-rates"
	"go-travel-rates/persist"
	"sync"
)

// Overrides user supplied rates that take precedence over fetched ones.
// Every mutation is written through to the persist.Store.
type Overrides struct {
	lock   sync.RWMutex
	rates  travel.Rates
	store  *persist.Store
	logger log.Logger
}

// NewOverrides returns an empty set of overrides backed by store
func NewOverrides(store *persist.Store, logger log.Logger) *Overrides {
	return &Overrides{
		rates:  travel.Rates{},
		store:  store,
		logger: logger,
	}
}

// Load replaces the in-memory overrides with the persisted ones
func (o *Overrides) Load(ctx context.Context) {
	rates := o.store.Overrides(ctx)
	o.lock.Lock()
	defer o.lock.Unlock()
	o.rates = rates
}

// Set stores rate for code and returns the rate actually stored.
// A rate rejected by travel.ValidRate is replaced by 1.
func (o *Overrides) Set(ctx context.Context, code travel.Currency, rate travel.Rate) (travel.Rate, error) {
	if !travel.ValidRate(rate) {
		level.Info(o.logger).Log("msg", "invalid override replaced", "currency", code, "rate", float64(rate), "replacement", 1)
		rate = 1
	}

	o.lock.Lock()
	o.rates[code] = rate
	snapshot := o.rates.Clone()
	o.lock.Unlock()

	if err := o.store.SaveOverrides(ctx, snapshot); err != nil {
		return rate, fmt.Errorf("set override [%v]: %w", code, err)
	}
	return rate, nil
}

// Reset removes the override for code
func (o *Overrides) Reset(ctx context.Context, code travel.Currency) error {
	o.lock.Lock()
	delete(o.rates, code)
	snapshot := o.rates.Clone()
	o.lock.Unlock()

	if err := o.store.SaveOverrides(ctx, snapshot); err != nil {
		return fmt.Errorf("reset override [%v]: %w", code, err)
	}
	return nil
}

// Get returns the override for code, if any
func (o *Overrides) Get(code travel.Currency) (travel.Rate, bool) {
	o.lock.RLock()
	defer o.lock.RUnlock()
	rate, ok := o.rates[code]
	return rate, ok
}

// All returns a copy of every override
func (o *Overrides) All() travel.Rates {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.rates.Clone()
}
