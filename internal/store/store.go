package store

import (
	"errors"
	"fmt"
	"time"

	"cdc-generator/internal/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrUnknownTable is returned for a table with no configured name
	ErrUnknownTable = errors.New("unknown table")
	// ErrNoRowsAffected is returned when an UPDATE or DELETE matched no row,
	// meaning the tracked key no longer exists at the store
	ErrNoRowsAffected = errors.New("no rows affected")
)

// TableNames maps logical fact tables to their physical location
type TableNames struct {
	Schema  string
	Sales   string
	Returns string
}

// Name returns the physical table name for t
func (n TableNames) Name(t models.Table) (string, error) {
	switch t {
	case models.TableSales:
		if n.Sales != "" {
			return n.Sales, nil
		}
	case models.TableReturns:
		if n.Returns != "" {
			return n.Returns, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTable, t)
}

func (n TableNames) identifier(t models.Table) (exp.IdentifierExpression, error) {
	name, err := n.Name(t)
	if err != nil {
		return nil, err
	}
	if n.Schema == "" {
		return goqu.T(name), nil
	}
	return goqu.S(n.Schema).Table(name), nil
}

// Store executes generated operations against the warehouse
type Store struct {
	db     *sqlx.DB
	tables TableNames
}

// NewStore creates a new database store
func NewStore(databaseURL string, tables TableNames) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one generator owns one connection; batches are sequential per table
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, tables: tables}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}
