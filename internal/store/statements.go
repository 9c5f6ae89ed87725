package store

import (
	"fmt"
	"sort"

	"cdc-generator/internal/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const dialectPostgres = "postgres"

var dialect = goqu.Dialect(dialectPostgres)

// columns returns the column names of a record in a stable order
func columns(r models.Record) []any {
	row := r.Row()
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	cols := make([]any, len(names))
	for i, name := range names {
		cols[i] = goqu.C(name)
	}
	return cols
}

// statement builds the SQL executing op
func (n TableNames) statement(op models.Operation) (string, []any, error) {
	if op.Data == nil {
		return "", nil, fmt.Errorf("%s operation without data", op.Kind)
	}
	table, err := n.identifier(op.Table)
	if err != nil {
		return "", nil, err
	}
	keyCol := op.Table.KeyColumn()

	switch op.Kind {
	case models.OperationInsert:
		return dialect.Insert(table).
			Rows(goqu.Record(op.Data.Row())).
			Prepared(true).
			ToSQL()

	case models.OperationUpdate:
		set := goqu.Record(op.Data.Row())
		delete(set, keyCol)
		return dialect.Update(table).
			Set(set).
			Where(goqu.C(keyCol).Eq(op.Key())).
			Prepared(true).
			ToSQL()

	case models.OperationDelete:
		return dialect.Delete(table).
			Where(goqu.C(keyCol).Eq(op.Key())).
			Prepared(true).
			ToSQL()
	}

	return "", nil, fmt.Errorf("unsupported operation kind %q", op.Kind)
}

// selectByKey builds the query fetching one full row
func (n TableNames) selectByKey(t models.Table, key int64) (string, []any, error) {
	table, err := n.identifier(t)
	if err != nil {
		return "", nil, err
	}
	var shape models.Record = &models.SalesRecord{}
	if t == models.TableReturns {
		shape = &models.ReturnsRecord{}
	}

	return dialect.From(table).
		Select(columns(shape)...).
		Where(goqu.C(t.KeyColumn()).Eq(key)).
		Prepared(true).
		ToSQL()
}

// selectKeys builds the query sampling up to limit keys
func (n TableNames) selectKeys(t models.Table, limit int) (string, []any, error) {
	table, err := n.identifier(t)
	if err != nil {
		return "", nil, err
	}

	return dialect.From(table).
		Select(goqu.C(t.KeyColumn())).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}
