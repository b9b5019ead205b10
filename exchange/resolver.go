package exchange

import (
	travel "go-travel-rates"
)

// RateSource supplies the current rate table, nil if there is none yet
type RateSource interface {
	Current() *travel.RateTable
}

// RateResolver resolves the rate used for a currency
type RateResolver interface {
	EffectiveRate(code travel.Currency) travel.Rate
}

// Origin names where an effective rate came from
type Origin string

const (
	OriginOverride Origin = "override"
	OriginTable    Origin = "table"
	OriginFallback Origin = "fallback"
)

// OriginResolver is a RateResolver that can also tell where a rate came from
type OriginResolver interface {
	RateResolver
	Resolve(code travel.Currency) (travel.Rate, Origin)
}

// Resolver applies the rate resolution rule used by every conversion:
// the override if there is one, else the fetched rate, else 1.
type Resolver struct {
	rates     RateSource
	overrides *Overrides
}

// NewResolver constructs a valid Resolver
func NewResolver(rates RateSource, overrides *Overrides) *Resolver {
	return &Resolver{
		rates:     rates,
		overrides: overrides,
	}
}

// EffectiveRate returns the rate for code. The result is always positive.
func (r *Resolver) EffectiveRate(code travel.Currency) travel.Rate {
	rate, _ := r.Resolve(code)
	return rate
}

// Resolve returns the effective rate for code and its Origin
func (r *Resolver) Resolve(code travel.Currency) (travel.Rate, Origin) {
	if rate, ok := r.overrides.Get(code); ok && travel.ValidRate(rate) {
		return rate, OriginOverride
	}
	if table := r.rates.Current(); table != nil {
		if rate, ok := table.Rates[code]; ok && travel.ValidRate(rate) {
			return rate, OriginTable
		}
	}
	return 1, OriginFallback
}
