// Package selector decides which kind of change the generator emits next
package selector

import (
	"math/rand"

	"cdc-generator/internal/models"
)

// DefaultFrequency is the number of proposals per UPDATE/DELETE candidate
const DefaultFrequency = 800

// Sizer reports how many keys a table currently has tracked
type Sizer interface {
	Len() int
}

// Selector turns a monotonic proposal counter into operation kinds. Every
// frequency-th proposal is an UPDATE or DELETE candidate; all others are
// INSERTs. A candidate degrades to INSERT when the table has no tracked keys.
type Selector struct {
	frequency uint64
	counter   uint64
	rng       *rand.Rand
}

// New creates a selector. A non-positive frequency selects DefaultFrequency.
func New(frequency int, rng *rand.Rand) *Selector {
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	return &Selector{
		frequency: uint64(frequency),
		rng:       rng,
	}
}

// Next advances the counter and returns the kind for that slot
func (s *Selector) Next(keys Sizer) models.OperationKind {
	s.counter++

	if s.counter%s.frequency != 0 {
		return models.OperationInsert
	}

	if keys == nil || keys.Len() == 0 {
		return models.OperationInsert
	}

	if s.rng.Intn(2) == 0 {
		return models.OperationUpdate
	}
	return models.OperationDelete
}

// Counter returns the number of proposals made so far
func (s *Selector) Counter() uint64 {
	return s.counter
}

// Frequency returns the UPDATE/DELETE candidate period
func (s *Selector) Frequency() int {
	return int(s.frequency)
}
