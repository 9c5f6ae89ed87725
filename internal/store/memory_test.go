package store

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"cdc-generator/internal/models"
	"cdc-generator/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := synth.New(rand.New(rand.NewSource(1)))
	m := NewMemoryStore(models.TableSales)

	first := s.Sale(0)
	require.NoError(t, m.ExecuteBatch(ctx, []models.Operation{
		{Kind: models.OperationInsert, Table: models.TableSales, Data: first},
	}))

	boom := errors.New("connection reset")
	m.FailNextBatch(1, boom)
	err := m.ExecuteBatch(ctx, []models.Operation{
		{Kind: models.OperationInsert, Table: models.TableSales, Data: s.Sale(1)},
		{Kind: models.OperationDelete, Table: models.TableSales, Data: first, OldData: first},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Count(models.TableSales))

	_, ok := m.Get(models.TableSales, first.ID)
	assert.True(t, ok)
}

func TestMemoryStoreRejectsDrift(t *testing.T) {
	ctx := context.Background()
	s := synth.New(rand.New(rand.NewSource(2)))
	m := NewMemoryStore(models.TableReturns)
	r := s.Return(0)

	err := m.ExecuteBatch(ctx, []models.Operation{
		{Kind: models.OperationDelete, Table: models.TableReturns, Data: r, OldData: r},
	})
	assert.ErrorIs(t, err, ErrNoRowsAffected)

	m.Put(r)
	err = m.ExecuteBatch(ctx, []models.Operation{
		{Kind: models.OperationInsert, Table: models.TableReturns, Data: r},
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryStoreDropsTaxRate(t *testing.T) {
	s := synth.New(rand.New(rand.NewSource(3)))
	m := NewMemoryStore(models.TableSales)
	sale := s.Sale(0)
	m.Put(sale)

	got, err := m.FetchByKey(context.Background(), models.TableSales, sale.ID)
	require.NoError(t, err)
	assert.True(t, got.(*models.SalesRecord).TaxRate.IsZero())
	assert.True(t, got.(*models.SalesRecord).ExtTax.Equal(sale.ExtTax))
}

func TestMemoryStoreFetchMissing(t *testing.T) {
	m := NewMemoryStore(models.TableSales)
	got, err := m.FetchByKey(context.Background(), models.TableSales, 7)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = m.FetchByKey(context.Background(), models.TableReturns, 7)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestMemoryStoreSampleKeys(t *testing.T) {
	ctx := context.Background()
	s := synth.New(rand.New(rand.NewSource(4)))
	m := NewMemoryStore(models.TableSales, models.TableReturns)
	for i := 0; i < 20; i++ {
		m.Put(s.Sale(i))
	}

	keys, err := m.SampleKeys(ctx, models.TableSales, 5)
	require.NoError(t, err)
	assert.Len(t, keys, 5)

	keys, err = m.SampleKeys(ctx, models.TableReturns, 5)
	require.NoError(t, err)
	assert.Empty(t, keys)

	m.FailSampling(errors.New("permission denied"))
	_, err = m.SampleKeys(ctx, models.TableSales, 5)
	assert.Error(t, err)

	exists, err := m.TableExists(ctx, models.TableReturns)
	require.NoError(t, err)
	assert.True(t, exists)
}
