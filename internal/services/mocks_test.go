package services

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/ruralpay/atmledger/internal/audit"
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(e audit.Event) {
	m.Called(e)
}

func (m *MockAuditor) RecordTransaction(tx *models.Transaction) {
	m.Called(tx)
}

func (m *MockAuditor) RecordFailure(eventType string, accountID, counterparty int64, amount models.Money, currency models.Currency, err error) {
	m.Called(eventType, accountID, counterparty, amount, currency, err)
}

var errInjected = errors.New("injected storage fault")

// faultyStore fails the named Tx method inside every unit of work.
type faultyStore struct {
	repository.Store
	failOn string
}

func (f *faultyStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return f.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, failOn: f.failOn})
	})
}

type faultyTx struct {
	repository.Tx
	failOn string
}

func (t *faultyTx) fault(method string) error {
	if t.failOn == method {
		return ledgererr.Persistence("faulty."+method, errInjected)
	}
	return nil
}

func (t *faultyTx) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := t.fault("CreateTransaction"); err != nil {
		return nil, err
	}
	return t.Tx.CreateTransaction(ctx, tx)
}

func (t *faultyTx) CreateDeposit(ctx context.Context, d *models.Deposit) (*models.Deposit, error) {
	if err := t.fault("CreateDeposit"); err != nil {
		return nil, err
	}
	return t.Tx.CreateDeposit(ctx, d)
}

func (t *faultyTx) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) (*models.Withdrawal, error) {
	if err := t.fault("CreateWithdrawal"); err != nil {
		return nil, err
	}
	return t.Tx.CreateWithdrawal(ctx, w)
}

func (t *faultyTx) UpdateAccount(ctx context.Context, a *models.Account) (*models.Account, error) {
	if err := t.fault("UpdateAccount"); err != nil {
		return nil, err
	}
	return t.Tx.UpdateAccount(ctx, a)
}

func (t *faultyTx) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error) {
	if err := t.fault("UpdateTransactionStatus"); err != nil {
		return nil, err
	}
	return t.Tx.UpdateTransactionStatus(ctx, id, status)
}
