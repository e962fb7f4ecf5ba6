package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/lib/pq"

	"fleet/internal/repository"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 50 * time.Millisecond
)

// TxRunner runs units of work in a PostgreSQL transaction, retrying the
// whole unit when the failure is transient.
type TxRunner struct {
	db          *sql.DB
	maxAttempts int
	backoff     time.Duration
	onRetry     func(attempt int, err error)

	// run and after are swapped in tests to drive the retry loop without a
	// database or real delays.
	run   func(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error
	after func(d time.Duration) <-chan time.Time
}

// TxOption configures a TxRunner.
type TxOption func(*TxRunner)

// WithMaxAttempts sets how many times a unit of work is tried.
func WithMaxAttempts(n int) TxOption {
	return func(r *TxRunner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles per retry.
func WithBackoff(d time.Duration) TxOption {
	return func(r *TxRunner) { r.backoff = d }
}

// WithRetryHook registers a callback invoked before each retry.
func WithRetryHook(fn func(attempt int, err error)) TxOption {
	return func(r *TxRunner) { r.onRetry = fn }
}

// NewTxRunner creates a TxRunner on the given pool.
func NewTxRunner(db *sql.DB, opts ...TxOption) *TxRunner {
	r := &TxRunner{
		db:          db,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		after:       time.After,
	}
	r.run = r.runOnce
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithinTx runs fn in a transaction. Transient failures roll back and
// re-run fn from scratch, so fn must not keep state between calls.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	delay := r.backoff
	for attempt := 1; ; attempt++ {
		err := r.run(ctx, fn)
		if err == nil || attempt >= r.maxAttempts || !IsTransient(err) {
			return err
		}

		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}

		select {
		case <-r.after(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// IsTransient reports whether err is a lock or connection failure worth
// retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
		return pqErr.Code.Class() == "08" // connection_exception
	}
	return false
}

type txStore struct {
	tx *sql.Tx
}

func (s *txStore) Trips() repository.TripRepository { return NewTripRepositoryWithTx(s.tx) }
func (s *txStore) Legs() repository.LegRepository { return NewLegRepositoryWithTx(s.tx) }
func (s *txStore) Trucks() repository.TruckRepository { return NewTruckRepositoryWithTx(s.tx) }
func (s *txStore) Trailers() repository.TrailerRepository { return NewTrailerRepositoryWithTx(s.tx) }
func (s *txStore) Drivers() repository.DriverRepository { return NewDriverRepositoryWithTx(s.tx) }
func (s *txStore) Expenses() repository.ExpenseRepository { return NewExpenseRepositoryWithTx(s.tx) }
func (s *txStore) Settings() repository.SettingsRepository { return NewSettingsRepositoryWithTx(s.tx) }

// Ensure TxRunner implements repository.TxRunner.
var _ repository.TxRunner = (*TxRunner)(nil)
