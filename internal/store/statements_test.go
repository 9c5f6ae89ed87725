package store

import (
	"math/rand"
	"strings"
	"testing"

	"cdc-generator/internal/models"
	"cdc-generator/internal/synth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTables = TableNames{
	Schema:  "tpcds",
	Sales:   "store_sales_heap",
	Returns: "store_returns_heap",
}

func TestTableNames(t *testing.T) {
	name, err := testTables.Name(models.TableReturns)
	require.NoError(t, err)
	assert.Equal(t, "store_returns_heap", name)

	_, err = TableNames{Sales: "s"}.Name(models.TableReturns)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestInsertStatement(t *testing.T) {
	s := synth.New(rand.New(rand.NewSource(1)))
	sale := s.Sale(0)

	query, args, err := testTables.statement(models.Operation{
		Kind:  models.OperationInsert,
		Table: models.TableSales,
		Data:  sale,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, `INSERT INTO "tpcds"."store_sales_heap"`), query)
	assert.Contains(t, query, `"ss_id"`)
	assert.Contains(t, query, `"ss_net_paid_inc_tax"`)
	assert.Contains(t, query, "$1")
	assert.NotEmpty(t, args)
	assert.Contains(t, args, sale.ID)
}

func TestUpdateStatementKeepsKeyOutOfSet(t *testing.T) {
	s := synth.New(rand.New(rand.NewSource(2)))
	old := s.Return(0)
	updated := s.Mutate(old)

	query, args, err := testTables.statement(models.Operation{
		Kind:    models.OperationUpdate,
		Table:   models.TableReturns,
		Data:    updated,
		OldData: old,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, `UPDATE "tpcds"."store_returns_heap" SET`), query)
	setClause := query[:strings.Index(query, "WHERE")]
	assert.NotContains(t, setClause, `"sr_id"`)
	assert.Contains(t, query, `WHERE ("sr_id" = $`)
	assert.Equal(t, old.ID, args[len(args)-1])
}

func TestDeleteStatement(t *testing.T) {
	s := synth.New(rand.New(rand.NewSource(3)))
	sale := s.Sale(0)

	query, args, err := testTables.statement(models.Operation{
		Kind:    models.OperationDelete,
		Table:   models.TableSales,
		Data:    sale,
		OldData: sale,
	})
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM "tpcds"."store_sales_heap" WHERE ("ss_id" = $1)`, query)
	assert.Equal(t, []any{sale.ID}, args)
}

func TestStatementRejectsMissingData(t *testing.T) {
	_, _, err := testTables.statement(models.Operation{Kind: models.OperationInsert, Table: models.TableSales})
	assert.Error(t, err)
}

func TestSelectByKeyListsEveryColumn(t *testing.T) {
	query, args, err := testTables.selectByKey(models.TableSales, 42)
	require.NoError(t, err)

	for col := range (&models.SalesRecord{}).Row() {
		assert.Contains(t, query, `"`+col+`"`)
	}
	assert.Contains(t, query, `FROM "tpcds"."store_sales_heap"`)
	assert.Equal(t, []any{int64(42)}, args)
}

func TestSelectKeys(t *testing.T) {
	query, _, err := testTables.selectKeys(models.TableReturns, 10000)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, `SELECT "sr_id" FROM "tpcds"."store_returns_heap"`), query)
	assert.Contains(t, query, "LIMIT")
}

func TestUnqualifiedTable(t *testing.T) {
	query, _, err := TableNames{Sales: "store_sales"}.selectKeys(models.TableSales, 5)
	require.NoError(t, err)
	assert.Contains(t, query, `FROM "store_sales"`)
}
