package exchange

import (
	"context"
	"github.com/go-kit/log"
	travel "go-travel-rates"
	"time"
)

// loggingService logs every conversion together with the rates it was computed from
type loggingService struct {
	logger   log.Logger
	resolver OriginResolver
	next     Service
}

// NewLoggingService returns a Service logging each Convert, including where the
// from and to rates came from according to resolver
func NewLoggingService(logger log.Logger, resolver OriginResolver, s Service) Service {
	return &loggingService{
		logger:   logger,
		resolver: resolver,
		next:     s,
	}
}

func (s *loggingService) Convert(ctx context.Context, amount travel.Amount, from travel.Currency, to travel.Currency) (ex travel.Exchanged, err error) {
	defer func(begin time.Time) {
		fromRate, fromOrigin := s.resolver.Resolve(from)
		toRate, toOrigin := s.resolver.Resolve(to)
		s.logger.Log(
			"method", "convert",
			"amount", FormatAmount(amount),
			"from", from,
			"from_rate", float64(fromRate),
			"from_origin", fromOrigin,
			"to", to,
			"to_rate", float64(toRate),
			"to_origin", toOrigin,
			"converted", FormatAmount(ex.Amount),
			"took", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Convert(ctx, amount, from, to)
}
