package provider

import (
	"context"
	"errors"
	"fmt"
	"github.com/tidwall/gjson"
	travel "go-travel-rates"
	"io"
	"net/http"
	"strings"
	"time"
)

const ApiUrlBase = "https://open.er-api.com"

// DefaultTimeout for a single provider request
const DefaultTimeout = 10 * time.Second

// ErrProvider the provider answered, but not with a usable rate table
var ErrProvider = errors.New("provider error")

// Service wraps the rate provider REST API
type Service interface {
	// LatestRates fetches a complete table quoted against travel.BaseCurrency
	LatestRates(ctx context.Context) (travel.RateTable, error)
}

// Clock returns the current time
type Clock func() time.Time

// service open.er-api client
type service struct {
	// url base API url
	url string

	// client for HTTP requests
	client http.Client

	// now stamps fetched tables
	now Clock
}

// Option configures a Service built by NewService
type Option func(*service)

// WithURL overrides the base API url
func WithURL(url string) Option {
	return func(s *service) {
		if url != "" {
			s.url = strings.TrimRight(url, "/")
		}
	}
}

// WithTimeout overrides the HTTP client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

// WithClock overrides the clock used to stamp tables
func WithClock(now Clock) Option {
	return func(s *service) {
		s.now = now
	}
}

// NewService constructs a valid provider Service.
func NewService(opts ...Option) Service {
	s := &service{
		url: ApiUrlBase,
		client: http.Client{
			Timeout: DefaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LatestRates loads the current rates for travel.BaseCurrency.
// The provider refreshes its rates once a day.
func (s *service) LatestRates(ctx context.Context) (travel.RateTable, error) {
	url := fmt.Sprintf("%v/v6/latest/%v", s.url, travel.BaseCurrency)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return travel.RateTable{}, fmt.Errorf("building http request: %w", err)
	}
	httpResponse, err := s.client.Do(request)
	if err != nil {
		return travel.RateTable{}, fmt.Errorf("http get: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode > 299 {
		return travel.RateTable{}, fmt.Errorf("%w: unexpected status %v", ErrProvider, httpResponse.Status)
	}

	bytes, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return travel.RateTable{}, fmt.Errorf("reading json: %w", err)
	}

	rates, err := parseRates(bytes)
	if err != nil {
		return travel.RateTable{}, err
	}

	return travel.NewRateTable(rates, s.now()), nil
}

// parseRates extracts the rates object from a provider response.
// Entries that are not positive finite numbers are dropped.
func parseRates(body []byte) (travel.Rates, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrProvider)
	}

	doc := gjson.ParseBytes(body)
	if errorType := doc.Get("error-type"); errorType.Exists() {
		return nil, fmt.Errorf("%w: %v", ErrProvider, errorType.String())
	}
	if result := doc.Get("result"); result.Exists() && result.String() != "success" {
		return nil, fmt.Errorf("%w: result %q", ErrProvider, result.String())
	}

	ratesJson := doc.Get("rates")
	if !ratesJson.IsObject() {
		return nil, fmt.Errorf("%w: missing rates", ErrProvider)
	}

	rates := travel.Rates{}
	ratesJson.ForEach(func(code, rate gjson.Result) bool {
		if rate.Type == gjson.Number {
			rates[travel.Currency(code.String())] = travel.Rate(rate.Float())
		}
		return true
	})

	rates = rates.Valid()
	if len(rates) == 0 {
		return nil, fmt.Errorf("%w: no usable rates", ErrProvider)
	}
	return rates, nil
}
