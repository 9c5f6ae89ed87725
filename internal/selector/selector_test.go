package selector

import (
	"math/rand"
	"testing"

	"cdc-generator/internal/models"

	"github.com/stretchr/testify/assert"
)

type size int

func (s size) Len() int { return int(s) }

func TestCandidatesLandOnFrequencySlots(t *testing.T) {
	sel := New(DefaultFrequency, rand.New(rand.NewSource(1)))

	var nonInsertSlots []uint64
	counts := models.KindCounts{}
	for i := 0; i < 8000; i++ {
		kind := sel.Next(size(5))
		counts.Add(kind)
		if kind != models.OperationInsert {
			nonInsertSlots = append(nonInsertSlots, sel.Counter())
		}
	}

	assert.Equal(t, []uint64{800, 1600, 2400, 3200, 4000, 4800, 5600, 6400, 7200, 8000}, nonInsertSlots)
	assert.Equal(t, 7990, counts.Inserts)
	assert.Equal(t, 10, counts.Updates+counts.Deletes)
}

func TestEmptyTableFallsBackToInsert(t *testing.T) {
	sel := New(DefaultFrequency, rand.New(rand.NewSource(1)))

	for i := 0; i < 8000; i++ {
		assert.Equal(t, models.OperationInsert, sel.Next(size(0)))
	}
	assert.Equal(t, uint64(8000), sel.Counter())
}

func TestNilSizerFallsBackToInsert(t *testing.T) {
	sel := New(1, rand.New(rand.NewSource(1)))
	assert.Equal(t, models.OperationInsert, sel.Next(nil))
}

func TestCandidatesSplitBetweenUpdateAndDelete(t *testing.T) {
	sel := New(1, rand.New(rand.NewSource(3)))

	counts := models.KindCounts{}
	for i := 0; i < 4000; i++ {
		counts.Add(sel.Next(size(1)))
	}

	assert.Zero(t, counts.Inserts)
	assert.InDelta(t, 2000, counts.Updates, 150)
	assert.InDelta(t, 2000, counts.Deletes, 150)
}

func TestCounterIsSharedAcrossTables(t *testing.T) {
	sel := New(4, rand.New(rand.NewSource(1)))
	sales, returns := size(3), size(0)

	kinds := []models.OperationKind{
		sel.Next(sales),
		sel.Next(returns),
		sel.Next(sales),
		sel.Next(returns), // slot 4, returns is empty
		sel.Next(sales),
		sel.Next(returns),
		sel.Next(returns),
		sel.Next(sales), // slot 8
	}

	assert.Equal(t, models.OperationInsert, kinds[3])
	assert.NotEqual(t, models.OperationInsert, kinds[7])
	assert.Equal(t, uint64(8), sel.Counter())
}

func TestNonPositiveFrequencyUsesDefault(t *testing.T) {
	assert.Equal(t, DefaultFrequency, New(0, rand.New(rand.NewSource(1))).Frequency())
	assert.Equal(t, DefaultFrequency, New(-5, rand.New(rand.NewSource(1))).Frequency())
}
