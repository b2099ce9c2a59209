package database

import (
	"context"
	"database/sql"
)

// Row is a single result row, satisfied by pgx.Row and *sql.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows iterates a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Result reports what an Exec changed.
type Result interface {
	RowsAffected() (int64, error)
}

// Executor runs statements. The inbox store writes every query with ?
// placeholders and passes it through Rebind first.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Transaction is an Executor that ends in Commit or Rollback.
type Transaction interface {
	Executor
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Connection is a pool of one driver that can open transactions.
type Connection interface {
	Executor
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
	Ping(ctx context.Context) error
	Driver() Driver
}

// SQLQuerier is the part of *sql.DB and *sql.Tx that SQLExecutor needs.
type SQLQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLExecutor adapts a database/sql handle to Executor.
type SQLExecutor struct {
	Querier SQLQuerier
}

// Exec implements Executor.
func (e SQLExecutor) Exec(ctx context.Context, query string, args ...any) (Result, error) {
	return e.Querier.ExecContext(ctx, query, args...)
}

// QueryRow implements Executor.
func (e SQLExecutor) QueryRow(ctx context.Context, query string, args ...any) Row {
	return e.Querier.QueryRowContext(ctx, query, args...)
}

// Query implements Executor.
func (e SQLExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.Querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
