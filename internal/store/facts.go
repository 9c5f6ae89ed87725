package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cdc-generator/internal/models"
	"cdc-generator/internal/util"

	"go.opentelemetry.io/otel/attribute"
)

// FetchByKey retrieves a full fact row, or nil when the key does not exist
func (s *Store) FetchByKey(ctx context.Context, table models.Table, key int64) (models.Record, error) {
	ctx, span := util.StartSpan(ctx, "Store.FetchByKey")
	defer span.End()

	query, args, err := s.tables.selectByKey(table, key)
	if err != nil {
		return nil, err
	}

	var record models.Record
	switch table {
	case models.TableSales:
		record = &models.SalesRecord{}
	case models.TableReturns:
		record = &models.ReturnsRecord{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	err = s.db.GetContext(ctx, record, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s row %d: %w", table, key, err)
	}
	return record, nil
}

// ExecuteBatch applies ops in order inside one transaction. Any failing
// statement, or an UPDATE/DELETE that matched no row, rolls back the whole
// batch.
func (s *Store) ExecuteBatch(ctx context.Context, ops []models.Operation) error {
	ctx, span := util.StartSpan(ctx, "Store.ExecuteBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(ops)))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, op := range ops {
		query, args, err := s.tables.statement(op)
		if err != nil {
			return fmt.Errorf("failed to build statement %d: %w", i, err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("%s %s key=%d failed: %w", op.Kind, op.Table, op.Key(), err)
		}

		if op.Kind == models.OperationInsert {
			continue
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%s %s key=%d: %w", op.Kind, op.Table, op.Key(), ErrNoRowsAffected)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// TableExists checks the table is present in the configured schema
func (s *Store) TableExists(ctx context.Context, table models.Table) (bool, error) {
	name, err := s.tables.Name(table)
	if err != nil {
		return false, err
	}

	schema := s.tables.Schema
	if schema == "" {
		schema = "public"
	}

	var exists bool
	err = s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`, schema, name)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s.%s: %w", schema, name, err)
	}
	return exists, nil
}

// SampleKeys returns up to limit existing primary keys
func (s *Store) SampleKeys(ctx context.Context, table models.Table, limit int) ([]int64, error) {
	query, args, err := s.tables.selectKeys(table, limit)
	if err != nil {
		return nil, err
	}

	var keys []int64
	if err := s.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("failed to sample %s keys: %w", table, err)
	}
	return keys, nil
}
