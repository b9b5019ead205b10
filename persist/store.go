package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	travel "go-travel-rates"
)

// Slot keys
const (
	KeyRateTable = "travelrates.rates"
	KeyOverrides = "travelrates.overrides"
	KeyPinned    = "travelrates.pinned"
)

// Store typed access to the three persisted slots.
// Reads never fail: missing, unreadable or corrupt values degrade to their defaults.
type Store struct {
	backend Backend
	logger  log.Logger
}

// NewStore wraps a Backend
func NewStore(backend Backend, logger log.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// RateTable returns the persisted table, or nil if there isn't a usable one
func (s *Store) RateTable(ctx context.Context) *travel.RateTable {
	var table travel.RateTable
	if !s.read(ctx, KeyRateTable, &table) {
		return nil
	}
	if table.Rates == nil {
		level.Debug(s.logger).Log("msg", "rate table without rates", "key", KeyRateTable)
		return nil
	}
	table.Rates = table.Rates.Valid()
	return &table
}

// SaveRateTable replaces the persisted table
func (s *Store) SaveRateTable(ctx context.Context, table travel.RateTable) error {
	return s.write(ctx, KeyRateTable, table)
}

// Overrides returns the persisted custom rates, never nil
func (s *Store) Overrides(ctx context.Context) travel.Rates {
	var overrides travel.Rates
	if !s.read(ctx, KeyOverrides, &overrides) {
		return travel.Rates{}
	}
	return overrides.Valid()
}

// SaveOverrides replaces the persisted custom rates. Saving none removes the slot.
func (s *Store) SaveOverrides(ctx context.Context, overrides travel.Rates) error {
	if len(overrides) == 0 {
		if err := s.backend.Delete(ctx, KeyOverrides); err != nil {
			return fmt.Errorf("deleting [%v]: %w", KeyOverrides, err)
		}
		return nil
	}
	return s.write(ctx, KeyOverrides, overrides)
}

// Pinned returns the persisted pinned list, or DefaultPinned
func (s *Store) Pinned(ctx context.Context) []travel.Currency {
	var pinned []travel.Currency
	if !s.read(ctx, KeyPinned, &pinned) || pinned == nil {
		return append([]travel.Currency(nil), travel.DefaultPinned...)
	}

	seen := make(map[travel.Currency]bool, len(pinned))
	unique := make([]travel.Currency, 0, len(pinned))
	for _, code := range pinned {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		unique = append(unique, code)
	}
	return unique
}

// SavePinned replaces the persisted pinned list
func (s *Store) SavePinned(ctx context.Context, pinned []travel.Currency) error {
	if pinned == nil {
		pinned = []travel.Currency{}
	}
	return s.write(ctx, KeyPinned, pinned)
}

// Close closes the underlying Backend
func (s *Store) Close() error {
	return s.backend.Close()
}

// read decodes key into v, reporting whether v is usable
func (s *Store) read(ctx context.Context, key string, v interface{}) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		level.Warn(s.logger).Log("msg", "reading slot failed", "key", key, "err", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		level.Debug(s.logger).Log("msg", "corrupt slot treated as absent", "key", key, "err", err)
		return false
	}
	return true
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding [%v]: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, string(bytes)); err != nil {
		return fmt.Errorf("saving [%v]: %w", key, err)
	}
	return nil
}
