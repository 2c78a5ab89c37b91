// Package memory is an in-process implementation of the ledger storage
// boundary. A unit of work stages a private copy of the whole ledger and
// swaps it in on commit, so an aborted unit of work leaves nothing behind.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
)

// DefaultLockTimeout bounds how long a unit of work waits for its turn.
const DefaultLockTimeout = 5 * time.Second

var errTxClosed = errors.New("unit of work already finished")

// Store is safe for concurrent use. Units of work are serialized.
type Store struct {
	mu        sync.RWMutex
	committed *state

	turn        chan struct{}
	lockTimeout time.Duration
	now         func() time.Time
}

var _ repository.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout sets the maximum wait for a unit of work.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithClock replaces time.Now for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		committed:   newState(),
		turn:        make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx implements repository.Store.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-s.turn }()

	s.mu.RLock()
	staged := s.committed.clone()
	s.mu.RUnlock()

	tx := &memTx{reader: reader{st: staged}, store: s}
	defer func() { tx.closed = true }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return ledgererr.Persistence("memory.Commit", err)
	}

	s.mu.Lock()
	s.committed = staged
	s.mu.Unlock()
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ledgererr.Retryable("memory.WithinTx", ledgererr.ReasonLockTimeout, ctx.Err())
	case <-timer.C:
		return ledgererr.Retryable("memory.WithinTx", ledgererr.ReasonLockTimeout,
			fmt.Errorf("lock wait exceeded %s", s.lockTimeout))
	}
}

func (s *Store) view() reader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reader{st: s.committed}
}

// Committed state is replaced, never mutated, so a snapshot stays consistent
// after the read lock is released.

func (s *Store) FindAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.view().FindAccountByID(ctx, id)
}

func (s *Store) FindAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	return s.view().FindAccountByNumber(ctx, number)
}

func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.view().ListAccounts(ctx)
}

func (s *Store) FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.view().FindTransactionByID(ctx, id)
}

func (s *Store) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return s.view().FindTransactionByIdempotencyKey(ctx, key)
}

func (s *Store) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	return s.view().ListTransactions(ctx, filter)
}

func (s *Store) FindDepositByTransactionID(ctx context.Context, transactionID int64) (*models.Deposit, error) {
	return s.view().FindDepositByTransactionID(ctx, transactionID)
}

func (s *Store) FindWithdrawalByTransactionID(ctx context.Context, transactionID int64) (*models.Withdrawal, error) {
	return s.view().FindWithdrawalByTransactionID(ctx, transactionID)
}

func (s *Store) ListDeposits(ctx context.Context, filter models.MovementFilter) ([]*models.Deposit, error) {
	return s.view().ListDeposits(ctx, filter)
}

func (s *Store) ListWithdrawals(ctx context.Context, filter models.MovementFilter) ([]*models.Withdrawal, error) {
	return s.view().ListWithdrawals(ctx, filter)
}

func (s *Store) SummarizeAccount(ctx context.Context, accountID int64) (*models.AccountSummary, error) {
	return s.view().SummarizeAccount(ctx, accountID)
}
