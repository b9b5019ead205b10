package provider

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	travel "go-travel-rates"
	"time"
)

// Metrics the collectors recorded by an instrumenting Service
type Metrics struct {
	// Requests counts requests by outcome: success, throttled, provider_error, transport_error
	Requests *prometheus.CounterVec
	// Latency observes request duration in seconds
	Latency prometheus.Histogram
}

// NewMetrics creates the provider collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travelrates",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Rate provider requests by outcome.",
		}, []string{"outcome"}),
		Latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "travelrates",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Rate provider request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Requests, m.Latency)
	return m
}

// instrumentingService decorates a provider.Service with prometheus metrics
type instrumentingService struct {
	next    Service
	metrics *Metrics
}

// NewInstrumentingService returns a new instrumenting service
func NewInstrumentingService(metrics *Metrics, s Service) Service {
	return &instrumentingService{
		next:    s,
		metrics: metrics,
	}
}

func (s *instrumentingService) LatestRates(ctx context.Context) (table travel.RateTable, err error) {
	defer func(begin time.Time) {
		s.metrics.Requests.WithLabelValues(outcome(err)).Inc()
		s.metrics.Latency.Observe(time.Since(begin).Seconds())
	}(time.Now())
	return s.next.LatestRates(ctx)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ErrProvider):
		return "provider_error"
	default:
		return "transport_error"
	}
}
