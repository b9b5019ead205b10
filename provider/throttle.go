package provider

import (
	"context"
	"errors"
	travel "go-travel-rates"
	"golang.org/x/time/rate"
)

// ErrThrottled the request was refused locally to protect the provider
var ErrThrottled = errors.New("provider request throttled")

// throttledService decorates a provider.Service with a request limit.
// A request over the limit fails immediately instead of waiting.
type throttledService struct {
	next    Service
	limiter *rate.Limiter
}

// NewThrottledService returns a service allowing at most limit requests per second with the given burst
func NewThrottledService(limit rate.Limit, burst int, s Service) Service {
	return &throttledService{
		next:    s,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (s *throttledService) LatestRates(ctx context.Context) (travel.RateTable, error) {
	if !s.limiter.Allow() {
		return travel.RateTable{}, ErrThrottled
	}
	return s.next.LatestRates(ctx)
}
