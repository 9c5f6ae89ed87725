package synth

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Range is an inclusive integer range
type Range struct {
	Min int64
	Max int64
}

func (r Range) draw(rng *rand.Rand) int64 {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Int63n(r.Max-r.Min+1)
}

// Contains reports whether v lies within the range
func (r Range) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds the dimension cardinalities keys are drawn from
type Ranges struct {
	Time     Range
	Item     Range
	Customer Range
	Store    Range
	Promo    Range
	Reason   Range
	Cdemo    Range
	Hdemo    Range
	Addr     Range
	Ticket   Range
}

// DefaultRanges returns the TPC-DS scale used by the warehouse dimensions
func DefaultRanges() Ranges {
	return Ranges{
		Time:     Range{0, 86399},
		Item:     Range{1, 18000},
		Customer: Range{1, 100000},
		Store:    Range{1, 12},
		Promo:    Range{1, 300},
		Reason:   Range{1, 35},
		Cdemo:    Range{1, 1920800},
		Hdemo:    Range{1, 7200},
		Addr:     Range{1, 50000},
		Ticket:   Range{1, 999999999},
	}
}

// JulianDay returns the Julian day number of t's calendar date, which is how
// date_dim keys are numbered.
func JulianDay(t time.Time) int64 {
	year, month, day := t.Date()
	a := (14 - int64(month)) / 12
	y := int64(year) + 4800 - a
	m := int64(month) + 12*a - 3
	return int64(day) + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// money draws an amount with two decimal places in [min, max] cents
func money(rng *rand.Rand, minCents, maxCents int64) decimal.Decimal {
	return decimal.New(Range{minCents, maxCents}.draw(rng), -2)
}

// factor draws a rate in [min, max] expressed in units of 10^-places
func factor(rng *rand.Rand, min, max int64, places int32) decimal.Decimal {
	return decimal.New(Range{min, max}.draw(rng), -places)
}
