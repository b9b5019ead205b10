package command

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go-travel-rates/config"
	"go-travel-rates/connectivity"
	"go-travel-rates/exchange"
	"go-travel-rates/persist"
	"go-travel-rates/provider"
	"go-travel-rates/ratestore"
	"golang.org/x/time/rate"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Env the collaborators shared by every command, built once per invocation
type Env struct {
	Config config.Config
	Logger log.Logger

	Persist   *persist.Store
	Signal    connectivity.Signal
	Rates     *ratestore.Store
	Overrides *exchange.Overrides
	Resolver  *exchange.Resolver
	Converter exchange.Service
	Registry  *prometheus.Registry

	// probe is nil when connectivity is forced offline
	probe *connectivity.Probe

	// Now is the clock used for display and staleness
	Now func() time.Time

	Out io.Writer
	In  io.Reader
}

// loadConfig reads the config file and lets any global flag that was set win over it
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("db") {
		cfg.Storage.Path = cmd.String("db")
	}
	if cmd.IsSet("provider-url") {
		cfg.Provider.URL = cmd.String("provider-url")
	}
	if cmd.IsSet("offline") {
		cfg.Connectivity.Offline = cmd.Bool("offline")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// NewEnv wires every collaborator from cfg. The persisted rate table and overrides are loaded.
func NewEnv(ctx context.Context, cfg config.Config, ephemeral bool, stdout io.Writer, stdin io.Reader, stderr io.Writer) (*Env, error) {
	logger := config.NewLogger(stderr, cfg.Log.Format, cfg.Log.Level)

	backend, err := openBackend(cfg.Storage.Path, ephemeral)
	if err != nil {
		return nil, err
	}
	ps := persist.NewStore(backend, log.With(logger, "component", "persist"))

	registry := prometheus.NewRegistry()

	var rateService provider.Service
	rateService = provider.NewService(
		provider.WithURL(cfg.Provider.URL),
		provider.WithTimeout(time.Duration(cfg.Provider.Timeout)),
	)
	rateService = provider.NewLoggingService(level.Debug(log.With(logger, "component", "provider_rest")), rateService)
	rateService = provider.NewThrottledService(rate.Limit(cfg.Provider.RateLimit), cfg.Provider.Burst, rateService)
	rateService = provider.NewInstrumentingService(provider.NewMetrics(registry), rateService)

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		Persist:  ps,
		Registry: registry,
		Now:      time.Now,
		Out:      stdout,
		In:       stdin,
	}

	if cfg.Connectivity.Offline {
		env.Signal = connectivity.NewStatic(false)
	} else {
		address, err := connectivity.AddressFor(cfg.Provider.URL)
		if err != nil {
			_ = ps.Close()
			return nil, err
		}
		env.probe = connectivity.NewProbe(address,
			time.Duration(cfg.Connectivity.ProbeInterval),
			time.Duration(cfg.Connectivity.ProbeTimeout),
			log.With(logger, "component", "connectivity"),
		)
		env.Signal = env.probe
	}

	env.Rates = ratestore.New(rateService, ps, env.Signal, log.With(logger, "component", "ratestore"),
		ratestore.WithStaleAfter(time.Duration(cfg.Refresh.StaleAfter)),
		ratestore.WithCheckInterval(time.Duration(cfg.Refresh.CheckInterval)),
		ratestore.WithMetrics(ratestore.NewMetrics(registry)),
		ratestore.WithClock(func() time.Time { return env.Now() }),
	)
	env.Rates.Load(ctx)

	env.Overrides = exchange.NewOverrides(ps, log.With(logger, "component", "overrides"))
	env.Overrides.Load(ctx)

	env.Resolver = exchange.NewResolver(env.Rates, env.Overrides)

	var converter exchange.Service
	converter = exchange.NewService(env.Resolver)
	converter = exchange.NewLoggingService(level.Debug(log.With(logger, "component", "convert")), env.Resolver, converter)
	env.Converter = converter

	return env, nil
}

func openBackend(path string, ephemeral bool) (persist.Backend, error) {
	if ephemeral {
		return persist.NewMemoryBackend(), nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	return persist.NewSQLiteBackend(path)
}

// Engine builds a conversion engine over the persisted pinned list
func (e *Env) Engine(ctx context.Context) *exchange.Engine {
	return exchange.NewEngine(ctx, e.Resolver, e.Persist, log.With(e.Logger, "component", "engine"))
}

// CheckConnectivity probes once so one-shot commands see the current state
func (e *Env) CheckConnectivity(ctx context.Context) {
	if e.probe != nil {
		e.probe.Check(ctx)
	}
}

// AutoRefresh applies the refresh policy: fetch once if the table is stale and we are online
func (e *Env) AutoRefresh(ctx context.Context) {
	if !e.Rates.IsStale(e.Now()) {
		return
	}
	e.CheckConnectivity(ctx)
	e.Rates.Refresh(ctx)
}

// Close releases the storage
func (e *Env) Close() error {
	e.Rates.Wait()
	return e.Persist.Close()
}
