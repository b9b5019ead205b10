package exchange

import (
	"context"
	travel "go-travel-rates"
)

// Service interface for converting an amount from one currency to another
type Service interface {
	Convert(ctx context.Context, amount travel.Amount, from travel.Currency, to travel.Currency) (travel.Exchanged, error)
}

// service converts through the base currency using effective rates
type service struct {
	// resolver to look up effective rates
	resolver RateResolver
}

// NewService constructs a valid Service
func NewService(r RateResolver) Service {
	return &service{
		resolver: r,
	}
}

// Convert computes a conversion from one currency to another with the current effective rates.
// Unknown currencies resolve to a rate of 1, so only a cancelled ctx fails.
func (s *service) Convert(ctx context.Context, amount travel.Amount, from travel.Currency, to travel.Currency) (travel.Exchanged, error) {
	if err := ctx.Err(); err != nil {
		return travel.Exchanged{}, err
	}

	rate := float64(s.resolver.EffectiveRate(to)) / float64(s.resolver.EffectiveRate(from))
	converted := rate * float64(amount)
	if !finite(converted) {
		converted = 0
	}

	result := travel.Exchanged{
		Rate:   travel.Rate(rate),
		Amount: Round2(travel.Amount(converted)),
	}

	return result, nil
}
