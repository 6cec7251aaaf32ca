// Package postgres provides the pgx-backed store. Units of work run inside a
// single database transaction and balance-bearing rows are read with
// SELECT ... FOR UPDATE so concurrent writers to one account serialize.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/storage"
)

// querier is the part of pgxpool.Pool and pgx.Tx the reader needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	reader
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{reader: reader{q: pool}, pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// InTx runs fn inside a database transaction. fn's error rolls everything back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(ctx, &pgTx{reader: reader{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", errs.ErrConsistency, err)
	}
	return nil
}

// pgTx implements storage.Tx on top of one pgx.Tx.
type pgTx struct {
	reader
}

// mapWriteErr turns constraint violations into domain errors.
func mapWriteErr(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return errs.Conflict("%s already exists", what)
		case "23503": // foreign_key_violation
			return errs.Consistency("%s references a missing row", what)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s violates %s", errs.ErrInvalid, what, pgErr.ConstraintName)
		}
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	return nil
}

// affected reports ErrNotFound when a targeted write touched no row.
func affected(tag pgconn.CommandTag, err error, what string) error {
	if err != nil {
		return mapWriteErr(err, what)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound(what)
	}
	return nil
}
