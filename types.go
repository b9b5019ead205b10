package travel

import (
	"math"
	"time"
)

// Currency a currency code, case-sensitive as received from the provider
type Currency string

// Amount a monetary amount shown in a conversion row
type Amount float64

// Rate an exchange rate relative to BaseCurrency
type Rate float64

// Rates maps currency codes to rates
type Rates map[Currency]Rate

// Exchanged the result of a one-shot conversion
type Exchanged struct {
	Rate   Rate
	Amount Amount
}

// BaseCurrency every RateTable is quoted against
const BaseCurrency Currency = "USD"

// StaleAfter is how old a RateTable may get before a refresh is attempted
const StaleAfter = 24 * time.Hour

// DefaultPinned seeds the pinned currency list
var DefaultPinned = []Currency{"USD", "EUR", "INR"}

// RateTable a wholesale snapshot of provider rates.
// Timestamp is in epoch milliseconds.
type RateTable struct {
	Rates     Rates `json:"rates"`
	Timestamp int64 `json:"timestamp"`
}

// NewRateTable builds a table stamped with now, dropping any rate that is not
// positive and finite.
func NewRateTable(rates Rates, now time.Time) RateTable {
	return RateTable{
		Rates:     rates.Valid(),
		Timestamp: now.UnixMilli(),
	}
}

// Time returns the timestamp as a time.Time
func (t RateTable) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Age returns how old the table is at now
func (t RateTable) Age(now time.Time) time.Duration {
	return now.Sub(t.Time())
}

// Valid returns a copy containing only positive, finite rates
func (r Rates) Valid() Rates {
	valid := make(Rates, len(r))
	for code, rate := range r {
		if ValidRate(rate) {
			valid[code] = rate
		}
	}
	return valid
}

// Clone returns a shallow copy of r
func (r Rates) Clone() Rates {
	c := make(Rates, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// minRate is the smallest normal float64. Dividing by anything smaller overflows.
const minRate = 0x1p-1022

// ValidRate reports whether rate is usable as a divisor: finite and no smaller than minRate
func ValidRate(rate Rate) bool {
	f := float64(rate)
	return f >= minRate && !math.IsInf(f, 0) && !math.IsNaN(f)
}
