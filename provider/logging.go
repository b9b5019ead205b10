package provider

import (
	"context"
	"github.com/go-kit/log"
	travel "go-travel-rates"
	"time"
)

// loggingService decorates a provider.Service with logging
type loggingService struct {
	next   Service
	logger log.Logger
}

// NewLoggingService return a new logging service
func NewLoggingService(logger log.Logger, s Service) Service {
	return &loggingService{
		next:   s,
		logger: logger,
	}
}

func (s *loggingService) LatestRates(ctx context.Context) (table travel.RateTable, err error) {
	defer func(begin time.Time) {
		s.logger.Log(
			"method", "latest_rates",
			"rates", len(table.Rates),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.LatestRates(ctx)
}
