// Package repository declares the storage boundary of the ledger.
//
// All writes of one business operation go through a single Tx handed out by
// Store.WithinTx: either every write lands or none does.
package repository

import (
	"context"

	"github.com/ruralpay/atmledger/internal/models"
)

// Reader holds the lookups available both inside and outside a unit of work.
// Lookups of absent rows fail with ledgererr.ErrNotFound.
type Reader interface {
	FindAccountByID(ctx context.Context, id int64) (*models.Account, error)
	FindAccountByNumber(ctx context.Context, number string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)

	FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error)
	FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)

	FindDepositByTransactionID(ctx context.Context, transactionID int64) (*models.Deposit, error)
	FindWithdrawalByTransactionID(ctx context.Context, transactionID int64) (*models.Withdrawal, error)
	// ListDeposits and ListWithdrawals return movements newest first, banknote
	// lines included. A deposit belongs to the account its transaction credits.
	ListDeposits(ctx context.Context, filter models.MovementFilter) ([]*models.Deposit, error)
	ListWithdrawals(ctx context.Context, filter models.MovementFilter) ([]*models.Withdrawal, error)

	SummarizeAccount(ctx context.Context, accountID int64) (*models.AccountSummary, error)
}

// Tx is one atomic unit of work.
type Tx interface {
	Reader

	// LockAccounts takes exclusive locks on the accounts in ascending id order
	// and returns them in the order requested. The locks are held until the
	// unit of work ends.
	LockAccounts(ctx context.Context, ids ...int64) ([]*models.Account, error)

	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateAccount(ctx context.Context, account *models.Account) (*models.Account, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error)

	// CreateDeposit stores the deposit row and its banknote lines as one write.
	CreateDeposit(ctx context.Context, deposit *models.Deposit) (*models.Deposit, error)
	// CreateWithdrawal stores the withdrawal row and its banknote lines as one write.
	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) (*models.Withdrawal, error)
}

// TxFunc is the body of a unit of work.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the storage collaborator of the ledger.
type Store interface {
	Reader

	// WithinTx runs fn in one unit of work. It commits once when fn returns nil
	// and discards every write when fn returns an error or panics.
	WithinTx(ctx context.Context, fn TxFunc) error
}
