// Package store wraps db.Querier with transaction support and groups the
// multi-step ledger and entitlement writes that must execute atomically.
//
// Dependency rule: store imports db only. It never imports api, payments,
// stripe or email.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nyashahama/learnhub-payments/internal/db"
)

var (
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("store: not found")

	// ErrLedgerWriteConflict is returned when a conditional ledger write
	// affected no row because a concurrent or earlier writer already moved it.
	// Callers re-read the row before deciding the delivery was a duplicate.
	ErrLedgerWriteConflict = errors.New("store: ledger write conflict")

	// ErrDuplicateReference is returned when a pending row is inserted with an
	// external reference that already exists.
	ErrDuplicateReference = errors.New("store: duplicate external reference")
)

// ReasonSuperseded flags an approved row whose tier was not applied because
// the user already held a higher active tier.
const ReasonSuperseded = "superseded_by_higher_tier"

// Store holds a *sql.DB for starting transactions and a db.Querier for
// executing queries outside of transactions. The operation files (ledger.go,
// approval.go, entitlements.go) attach methods to this type.
type Store struct {
	pool *sql.DB
	q    db.Querier
}

// New creates a Store from a live connection pool. The pool must already be
// open and verified (e.g. via db.PingContext) before calling New.
func New(pool *sql.DB, q db.Querier) *Store {
	return &Store{pool: pool, q: q}
}

// Ping verifies the pool can reach Postgres. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.PingContext(ctx)
}

// txQuerier is a function that receives a transactional Querier and returns an
// error. Returning a non-nil error makes withTxIsolation roll back.
type txQuerier func(ctx context.Context, q db.Querier) error

// withTxIsolation begins a transaction at the given isolation level, passes a
// Querier scoped to that transaction to fn, and commits on success or rolls
// back on any error (including panics).
func (s *Store) withTxIsolation(ctx context.Context, level sql.IsolationLevel, fn txQuerier) error {
	queries, ok := s.q.(*db.Queries)
	if !ok {
		return fmt.Errorf("store: transactions need *db.Queries, got %T", s.q)
	}

	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store: fn error: %w; rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
