package exchange

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
	travel "go-travel-rates"
	"go-travel-rates/persist"
	"math"
	"strconv"
	"strings"
)

// Row a pinned currency and the amount shown for it
type Row struct {
	Currency travel.Currency
	Amount   travel.Amount
}

// Engine keeps the amounts of all pinned currencies consistent with one another.
// An Engine is owned by a single goroutine; rates are read through the resolver.
type Engine struct {
	resolver RateResolver
	store    *persist.Store

	// pinned in pin order, no duplicates
	pinned []travel.Currency

	// amounts shown for each pinned currency
	amounts map[travel.Currency]travel.Amount

	// base USD-equivalent amount implied by the last edit
	base travel.Amount

	logger log.Logger
}

// NewEngine loads the pinned list from store and shows one unit of the base currency in every row
func NewEngine(ctx context.Context, resolver RateResolver, store *persist.Store, logger log.Logger) *Engine {
	e := &Engine{
		resolver: resolver,
		store:    store,
		pinned:   store.Pinned(ctx),
		logger:   logger,
	}
	e.base = 1
	e.amounts = Propagate(e.base, e.pinned, resolver)
	return e
}

// Edit sets code to value and recomputes every pinned row from the implied base amount
func (e *Engine) Edit(code travel.Currency, value travel.Amount) map[travel.Currency]travel.Amount {
	if !finite(float64(value)) {
		value = 0
	}

	rate := e.resolver.EffectiveRate(code)
	if !travel.ValidRate(rate) {
		level.Warn(e.logger).Log("msg", "unusable rate treated as 1", "currency", code, "rate", float64(rate))
		rate = 1
	}

	base := float64(value) / float64(rate)
	if !finite(base) {
		level.Warn(e.logger).Log("msg", "base amount overflowed, treated as 0", "currency", code, "value", float64(value), "rate", float64(rate))
		base = 0
	}

	e.base = travel.Amount(base)
	e.amounts = Propagate(e.base, e.pinned, e.resolver)
	return e.Amounts()
}

// EditText is Edit for raw user input. Anything that is not a finite number counts as 0.
func (e *Engine) EditText(code travel.Currency, text string) map[travel.Currency]travel.Amount {
	return e.Edit(code, ParseAmount(text))
}

// Pin appends code showing an amount of 1. Other rows are left as they are, so
// the new row only agrees with them after the next edit.
func (e *Engine) Pin(ctx context.Context, code travel.Currency) error {
	if code == "" {
		return nil
	}
	for _, p := range e.pinned {
		if p == code {
			return nil
		}
	}
	e.pinned = append(e.pinned, code)
	e.amounts[code] = 1
	if err := e.store.SavePinned(ctx, e.pinned); err != nil {
		return fmt.Errorf("pin [%v]: %w", code, err)
	}
	return nil
}

// Unpin drops code from the rows without recomputing the others
func (e *Engine) Unpin(ctx context.Context, code travel.Currency) error {
	pinned := make([]travel.Currency, 0, len(e.pinned))
	for _, p := range e.pinned {
		if p != code {
			pinned = append(pinned, p)
		}
	}
	if len(pinned) == len(e.pinned) {
		return nil
	}
	e.pinned = pinned
	delete(e.amounts, code)
	if err := e.store.SavePinned(ctx, e.pinned); err != nil {
		return fmt.Errorf("unpin [%v]: %w", code, err)
	}
	return nil
}

// Pinned returns a copy of the pinned currencies
func (e *Engine) Pinned() []travel.Currency {
	return append([]travel.Currency(nil), e.pinned...)
}

// Amounts returns a copy of the displayed amounts
func (e *Engine) Amounts() map[travel.Currency]travel.Amount {
	amounts := make(map[travel.Currency]travel.Amount, len(e.amounts))
	for k, v := range e.amounts {
		amounts[k] = v
	}
	return amounts
}

// Rows returns the displayed amounts in pin order
func (e *Engine) Rows() []Row {
	rows := make([]Row, 0, len(e.pinned))
	for _, code := range e.pinned {
		rows = append(rows, Row{Currency: code, Amount: e.amounts[code]})
	}
	return rows
}

// Base returns the base amount implied by the last edit
func (e *Engine) Base() travel.Amount {
	return e.base
}

// Propagate computes the amount of every pinned currency for a base amount.
// A row that would overflow shows 0.
func Propagate(base travel.Amount, pinned []travel.Currency, resolver RateResolver) map[travel.Currency]travel.Amount {
	amounts := make(map[travel.Currency]travel.Amount, len(pinned))
	for _, code := range pinned {
		amount := float64(base) * float64(resolver.EffectiveRate(code))
		if !finite(amount) {
			amount = 0
		}
		amounts[code] = Round2(travel.Amount(amount))
	}
	return amounts
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Round2 rounds to hundredths, halves away from zero
func Round2(x travel.Amount) travel.Amount {
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return x
	}
	return travel.Amount(decimal.NewFromFloat(f).Round(2).InexactFloat64())
}

// ParseAmount reads user input as an amount. Empty, malformed or non-finite input is 0.
func ParseAmount(text string) travel.Amount {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return travel.Amount(f)
}

// FormatAmount renders an amount with two decimals
func FormatAmount(x travel.Amount) string {
	f := float64(x)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}
