// Package postgres implements the ledger storage boundary on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads through the pool and writes through one *sql.Tx per unit of work.
type Store struct {
	queries
	db          *sql.DB
	lockTimeout time.Duration
}

var _ repository.Store = (*Store)(nil)

// NewStore wraps an open pool. A positive lockTimeout bounds every row-lock
// wait inside a unit of work.
func NewStore(db *sql.DB, lockTimeout time.Duration) *Store {
	return &Store{queries: queries{q: db}, db: db, lockTimeout: lockTimeout}
}

// WithinTx implements repository.Store.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("postgres.Begin", err)
	}
	// Rollback after Commit is a no-op; on panic it still runs before unwinding.
	defer sqlTx.Rollback()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := sqlTx.ExecContext(ctx, stmt); err != nil {
			return mapError("postgres.SetLockTimeout", err)
		}
	}

	if err := fn(ctx, &pgTx{queries: queries{q: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError("postgres.Commit", err)
	}
	return nil
}

// pgTx is the repository.Tx handed to a unit of work.
type pgTx struct {
	queries
}

var _ repository.Tx = (*pgTx)(nil)

// mapError turns driver failures into ledger errors.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *ledgererr.Error
	if errors.As(err, &le) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return &ledgererr.Error{
				Kind: ledgererr.KindConflict, Op: op, Entity: pqErr.Table,
				Msg: pqErr.Message, Err: err,
			}
		case "23503": // foreign_key_violation
			return &ledgererr.Error{
				Kind: ledgererr.KindNotFound, Op: op, Entity: referencedEntity(pqErr.Constraint),
				Msg: pqErr.Message, Err: err,
			}
		case "23514": // check_violation
			return &ledgererr.Error{
				Kind: ledgererr.KindValidation, Op: op, Entity: pqErr.Table,
				Reason: ledgererr.ReasonOutOfRange, Msg: pqErr.Message, Err: err,
			}
		case "55P03": // lock_not_available
			return ledgererr.Retryable(op, ledgererr.ReasonLockTimeout, err)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ledgererr.Retryable(op, "", err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ledgererr.Retryable(op, "", err)
	}
	return ledgererr.Persistence(op, err)
}

// referencedEntity names the parent table of a schema foreign key.
func referencedEntity(constraint string) string {
	for _, entity := range []string{"account", "transaction", "deposit", "withdrawal"} {
		if strings.HasSuffix(constraint, "_"+entity+"_fk") {
			return entity
		}
	}
	return ""
}
