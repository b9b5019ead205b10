package ratestore

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	travel "go-travel-rates"
	"go-travel-rates/connectivity"
	"go-travel-rates/persist"
	"go-travel-rates/provider"
	"go-travel-rates/ticker"
	"sync"
	"time"
)

// ErrOffline fetching is disabled while the client is offline
var ErrOffline = errors.New("offline")

// DefaultCheckInterval how often a scheduled Store re-checks staleness
const DefaultCheckInterval = time.Hour

// IsStale reports whether table is missing or older than travel.StaleAfter at now
func IsStale(table *travel.RateTable, now time.Time) bool {
	return isStale(table, now, travel.StaleAfter)
}

func isStale(table *travel.RateTable, now time.Time, staleAfter time.Duration) bool {
	if table == nil {
		return true
	}
	return now.UnixMilli()-table.Timestamp > staleAfter.Milliseconds()
}

// TickSource broadcasts periodic ticks
type TickSource interface {
	Subscribe(fn func(time.Time)) ticker.Subscription
	Unsubscribe(s ticker.Subscription)
}

// Status a snapshot of the store for display
type Status struct {
	Table     *travel.RateTable
	Stale     bool
	Offline   bool
	Fetching  bool
	LastError error
}

// Store owns the authoritative rate table.
// It decides when the table is stale and replaces it from the provider, keeping the
// previous table whenever a fetch fails. Store is concurrency safe.
type Store struct {
	// provider to fetch replacement tables from
	provider provider.Service

	// persist keeps the table across sessions
	persist *persist.Store

	// saveLock serialises rate table writes to persist
	saveLock sync.Mutex

	// signal tells whether fetching may be attempted
	signal connectivity.Signal

	staleAfter    time.Duration
	checkInterval time.Duration
	now           func() time.Time

	// lock guards everything below
	lock sync.RWMutex

	// current table, nil until loaded or fetched. Installed tables are never mutated.
	current *travel.RateTable

	// issued is the sequence number of the most recently started fetch
	issued uint64

	// applied is the sequence number of the fetch or save that produced current
	applied uint64

	// inflight counts outstanding fetches
	inflight int

	lastErr   error
	lastCheck time.Time
	listeners []func(*travel.RateTable)

	// refreshing prevents scheduled refreshes from piling up
	refreshing bool

	wg      sync.WaitGroup
	metrics *Metrics
	logger  log.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for staleness
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithStaleAfter overrides travel.StaleAfter
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithCheckInterval overrides DefaultCheckInterval
func WithCheckInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.checkInterval = d
		}
	}
}

// WithMetrics records fetch outcomes in m
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New constructs a Store with no current table. Call Load to pick up the persisted one.
func New(p provider.Service, ps *persist.Store, signal connectivity.Signal, logger log.Logger, opts ...Option) *Store {
	s := &Store{
		provider:      p,
		persist:       ps,
		signal:        signal,
		staleAfter:    travel.StaleAfter,
		checkInterval: DefaultCheckInterval,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load installs the persisted table, returning nil if it is absent or corrupt
func (s *Store) Load(ctx context.Context) *travel.RateTable {
	table := s.persist.RateTable(ctx)
	if table == nil {
		level.Debug(s.logger).Log("msg", "no persisted rate table")
		return nil
	}
	s.lock.Lock()
	s.current = table
	s.lock.Unlock()
	s.metrics.observeTable(table)
	level.Debug(s.logger).Log("msg", "loaded rate table", "rates", len(table.Rates), "timestamp", table.Timestamp)
	return table
}

// Current returns the current table, nil if there is none. Callers must not modify it.
func (s *Store) Current() *travel.RateTable {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.current
}

// IsStale reports whether the current table needs replacing at now
func (s *Store) IsStale(now time.Time) bool {
	return isStale(s.Current(), now, s.staleAfter)
}

// IsOffline reports whether fetching is disabled
func (s *Store) IsOffline() bool {
	return !s.signal.Online()
}

// LastError returns the error of the latest failed fetch, cleared by a successful one
func (s *Store) LastError() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lastErr
}

// Status returns a snapshot at now
func (s *Store) Status(now time.Time) Status {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Status{
		Table:     s.current,
		Stale:     isStale(s.current, now, s.staleAfter),
		Offline:   !s.signal.Online(),
		Fetching:  s.inflight > 0,
		LastError: s.lastErr,
	}
}

// OnUpdate registers fn to be called with every newly installed table
func (s *Store) OnUpdate(fn func(*travel.RateTable)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Save installs table and persists it. The last write wins.
func (s *Store) Save(ctx context.Context, table travel.RateTable) error {
	s.lock.Lock()
	s.issued++
	seq := s.issued
	s.applied = seq
	s.current = &table
	listeners := append([]func(*travel.RateTable){}, s.listeners...)
	s.lock.Unlock()

	s.metrics.observeTable(&table)
	for _, fn := range listeners {
		fn(&table)
	}

	if err := s.persistApplied(ctx, seq, table); err != nil {
		return fmt.Errorf("save rate table: %w", err)
	}
	return nil
}

// Fetch replaces the current table from the provider once.
// On failure the current table is kept and the error recorded. A fetch that completes
// after a later-started fetch has already been applied is discarded.
func (s *Store) Fetch(ctx context.Context) error {
	_, err := s.fetch(ctx)
	return err
}

// fetch is Fetch, also reporting whether the fetched table was installed
func (s *Store) fetch(ctx context.Context) (bool, error) {
	if s.IsOffline() {
		s.metrics.fetched("offline")
		return false, ErrOffline
	}

	s.lock.Lock()
	s.issued++
	seq := s.issued
	s.inflight++
	s.lock.Unlock()

	table, err := s.provider.LatestRates(ctx)

	s.lock.Lock()
	s.inflight--
	if err != nil {
		if seq > s.applied {
			s.lastErr = err
		}
		s.lock.Unlock()
		s.metrics.fetched("failed")
		level.Warn(s.logger).Log("msg", "fetch failed, keeping cached rates", "seq", seq, "err", err)
		return false, fmt.Errorf("fetch [%v]: %w", seq, err)
	}
	if seq < s.applied {
		applied := s.applied
		s.lock.Unlock()
		s.metrics.fetched("discarded")
		level.Info(s.logger).Log("msg", "discarding out of order fetch", "seq", seq, "applied", applied)
		return false, nil
	}
	s.applied = seq
	s.current = &table
	s.lastErr = nil
	listeners := append([]func(*travel.RateTable){}, s.listeners...)
	s.lock.Unlock()

	s.metrics.fetched("applied")
	s.metrics.observeTable(&table)
	level.Info(s.logger).Log("msg", "rate table replaced", "seq", seq, "rates", len(table.Rates))

	for _, fn := range listeners {
		fn(&table)
	}

	if err := s.persistApplied(ctx, seq, table); err != nil {
		// the new table is in use regardless; it just won't survive a restart
		level.Warn(s.logger).Log("msg", "persisting rate table failed", "err", err)
	}
	return true, nil
}

// persistApplied writes table unless a later table has been installed since seq.
// Writes are serialised so the persisted table never goes back in time.
func (s *Store) persistApplied(ctx context.Context, seq uint64, table travel.RateTable) error {
	s.saveLock.Lock()
	defer s.saveLock.Unlock()

	s.lock.RLock()
	applied := s.applied
	s.lock.RUnlock()
	if seq < applied {
		level.Debug(s.logger).Log("msg", "skipping superseded rate table write", "seq", seq, "applied", applied)
		return nil
	}
	return s.persist.SaveRateTable(ctx, table)
}

// Refresh fetches once if the current table is stale and the client is online.
// Failures are logged and otherwise ignored. Reports whether the fetched table was installed.
func (s *Store) Refresh(ctx context.Context) bool {
	now := s.now()

	s.lock.Lock()
	s.lastCheck = now
	s.lock.Unlock()

	if !s.IsStale(now) {
		return false
	}
	if s.IsOffline() {
		level.Debug(s.logger).Log("msg", "stale rates but offline, not refreshing")
		return false
	}
	applied, _ := s.fetch(ctx)
	return applied
}

// ManualRefresh fetches once regardless of staleness. It is disabled while offline.
func (s *Store) ManualRefresh(ctx context.Context) error {
	if s.IsOffline() {
		return ErrOffline
	}
	return s.Fetch(ctx)
}

// RefreshAsync runs ManualRefresh on its own goroutine. The current table stays usable
// meanwhile. The result is delivered on the returned channel, which is then closed.
func (s *Store) RefreshAsync(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(result)
		result <- s.ManualRefresh(ctx)
	}()
	return result
}

// Wait blocks until every asynchronous refresh has finished
func (s *Store) Wait() {
	s.wg.Wait()
}

// Schedule re-runs Refresh on ticks at most once per check interval, and whenever
// connectivity comes back. The returned func stops both.
func (s *Store) Schedule(ctx context.Context, ticks TickSource) (stop func()) {
	subscription := ticks.Subscribe(func(now time.Time) {
		s.lock.RLock()
		due := now.Sub(s.lastCheck) >= s.checkInterval
		s.lock.RUnlock()
		if due {
			s.refreshInBackground(ctx)
		}
	})
	unsubscribe := s.signal.Subscribe(func(online bool) {
		if online {
			level.Info(s.logger).Log("msg", "back online, checking rates")
			s.refreshInBackground(ctx)
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			ticks.Unsubscribe(subscription)
			unsubscribe()
		})
	}
}

// refreshInBackground starts Refresh unless one started by the schedule is still running
func (s *Store) refreshInBackground(ctx context.Context) {
	s.lock.Lock()
	if s.refreshing {
		s.lock.Unlock()
		return
	}
	s.refreshing = true
	s.lock.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.lock.Lock()
			s.refreshing = false
			s.lock.Unlock()
		}()
		s.Refresh(ctx)
	}()
}
