package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/audit"
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
	"github.com/ruralpay/atmledger/internal/validation"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type CreateAccountRequest struct {
	AccountNumber  string          `json:"account_number"`
	Currency       models.Currency `json:"currency"`
	OpeningBalance models.Money    `json:"opening_balance"`
}

// AccountUpdate changes the administrative fields of an account. Empty
// fields are left as they are. Balances only move through Deposit,
// Withdraw and Transfer.
type AccountUpdate struct {
	AccountNumber string          `json:"account_number,omitempty"`
	Currency      models.Currency `json:"currency,omitempty"`
}

// TransactionDetail is a transaction with its cash-handling detail, if any.
type TransactionDetail struct {
	*models.Transaction
	Deposit    *models.Deposit    `json:"deposit,omitempty"`
	Withdrawal *models.Withdrawal `json:"withdrawal,omitempty"`
}

func (s *LedgerService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*models.Account, error) {
	account := &models.Account{
		AccountNumber: req.AccountNumber,
		Balance:       req.OpeningBalance,
		Currency:      models.NormalizeCurrency(string(req.Currency)),
	}
	if err := validation.AccountForCreate(account); err != nil {
		return nil, ledgererr.WithOp("ledger.CreateAccount", err)
	}

	var created *models.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		created, err = tx.CreateAccount(ctx, account)
		return err
	})
	if err != nil {
		return nil, ledgererr.WithOp("ledger.CreateAccount", err)
	}

	s.log.Info("account created", zap.Int64("account_id", created.ID), zap.String("currency", string(created.Currency)))
	s.audit.Record(audit.Event{
		EventType: "ACCOUNT_CREATED",
		AccountID: created.ID,
		Amount:    created.Balance,
		Currency:  created.Currency,
		Status:    audit.StatusCompleted,
	})
	return created, nil
}

func (s *LedgerService) UpdateAccount(ctx context.Context, id int64, update AccountUpdate) (*models.Account, error) {
	const op = "ledger.UpdateAccount"
	if err := validation.PositiveID("account", "id", id); err != nil {
		return nil, ledgererr.WithOp(op, err)
	}

	var updated *models.Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockAccounts(ctx, id)
		if err != nil {
			return err
		}
		account := locked[0]
		if update.AccountNumber != "" {
			account.AccountNumber = update.AccountNumber
		}
		if update.Currency != "" {
			currency := models.NormalizeCurrency(string(update.Currency))
			if currency != account.Currency && !account.Balance.IsZero() {
				return ledgererr.Validation("account", "currency", ledgererr.ReasonNonZeroBalance,
					"currency cannot change while the balance is %s", account.Balance)
			}
			account.Currency = currency
		}
		if err := validation.AccountForUpdate(account); err != nil {
			return err
		}
		updated, err = tx.UpdateAccount(ctx, account)
		return err
	})
	if err != nil {
		return nil, ledgererr.WithOp(op, err)
	}

	s.audit.Record(audit.Event{
		EventType: "ACCOUNT_UPDATED",
		AccountID: updated.ID,
		Amount:    updated.Balance,
		Currency:  updated.Currency,
		Status:    audit.StatusCompleted,
	})
	return updated, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	if err := validation.PositiveID("account", "id", id); err != nil {
		return nil, err
	}
	return s.store.FindAccountByID(ctx, id)
}

func (s *LedgerService) GetAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	if number == "" {
		return nil, ledgererr.Validation("account", "account_number", ledgererr.ReasonMissing, "account number is required")
	}
	return s.store.FindAccountByNumber(ctx, number)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*TransactionDetail, error) {
	if err := validation.PositiveID("transaction", "id", id); err != nil {
		return nil, err
	}
	tx, err := s.store.FindTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &TransactionDetail{Transaction: tx}
	switch tx.Type {
	case models.TransactionDeposit:
		detail.Deposit, err = s.store.FindDepositByTransactionID(ctx, id)
	case models.TransactionWithdrawal:
		detail.Withdrawal, err = s.store.FindWithdrawalByTransactionID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// ListTransactions returns the newest transactions matching filter first.
func (s *LedgerService) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if filter.AccountID < 0 {
		return nil, ledgererr.Validation("transaction", "account_id", ledgererr.ReasonOutOfRange, "account_id must be positive")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, ledgererr.Validation("transaction", "type", ledgererr.ReasonUnsupported, "unknown transaction type %q", string(filter.Type))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ledgererr.Validation("transaction", "status", ledgererr.ReasonUnsupported, "unknown transaction status %q", string(filter.Status))
	}
	switch {
	case filter.Limit < 0 || filter.Limit > MaxListLimit:
		return nil, ledgererr.Validation("transaction", "limit", ledgererr.ReasonOutOfRange, "limit must be between 1 and %d", MaxListLimit)
	case filter.Limit == 0:
		filter.Limit = DefaultListLimit
	}

	if filter.AccountID != 0 {
		if _, err := s.store.FindAccountByID(ctx, filter.AccountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListTransactions(ctx, filter)
}

func (s *LedgerService) GetDeposit(ctx context.Context, transactionID int64) (*models.Deposit, error) {
	if err := validation.PositiveID("deposit", "transaction_id", transactionID); err != nil {
		return nil, err
	}
	return s.store.FindDepositByTransactionID(ctx, transactionID)
}

func (s *LedgerService) GetWithdrawal(ctx context.Context, transactionID int64) (*models.Withdrawal, error) {
	if err := validation.PositiveID("withdrawal", "transaction_id", transactionID); err != nil {
		return nil, err
	}
	return s.store.FindWithdrawalByTransactionID(ctx, transactionID)
}

// Movements groups the cash an ATM has taken in and paid out.
type Movements struct {
	AtmID       int64                `json:"atm_id"`
	Deposits    []*models.Deposit    `json:"deposits"`
	Withdrawals []*models.Withdrawal `json:"withdrawals"`
}

func (s *LedgerService) movementFilter(entity string, filter models.MovementFilter) (models.MovementFilter, error) {
	if filter.AtmID < 0 {
		return filter, ledgererr.Validation(entity, "atm_id", ledgererr.ReasonOutOfRange, "atm_id must be positive")
	}
	if filter.AccountID < 0 {
		return filter, ledgererr.Validation(entity, "account_id", ledgererr.ReasonOutOfRange, "account_id must be positive")
	}
	switch {
	case filter.Limit < 0 || filter.Limit > MaxListLimit:
		return filter, ledgererr.Validation(entity, "limit", ledgererr.ReasonOutOfRange, "limit must be between 1 and %d", MaxListLimit)
	case filter.Limit == 0:
		filter.Limit = DefaultListLimit
	}
	return filter, nil
}

// ListDeposits returns the newest deposits matching filter first. An account
// filter matches the deposits credited to that account.
func (s *LedgerService) ListDeposits(ctx context.Context, filter models.MovementFilter) ([]*models.Deposit, error) {
	filter, err := s.movementFilter("deposit", filter)
	if err != nil {
		return nil, err
	}
	if filter.AccountID != 0 {
		if _, err := s.store.FindAccountByID(ctx, filter.AccountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListDeposits(ctx, filter)
}

// ListWithdrawals returns the newest withdrawals matching filter first.
func (s *LedgerService) ListWithdrawals(ctx context.Context, filter models.MovementFilter) ([]*models.Withdrawal, error) {
	filter, err := s.movementFilter("withdrawal", filter)
	if err != nil {
		return nil, err
	}
	if filter.AccountID != 0 {
		if _, err := s.store.FindAccountByID(ctx, filter.AccountID); err != nil {
			return nil, err
		}
	}
	return s.store.ListWithdrawals(ctx, filter)
}

// AtmMovements lists the deposits and withdrawals handled by one ATM, each
// newest first and capped at limit.
func (s *LedgerService) AtmMovements(ctx context.Context, atmID int64, limit int) (*Movements, error) {
	if err := validation.PositiveID("atm", "id", atmID); err != nil {
		return nil, err
	}
	filter := models.MovementFilter{AtmID: atmID, Limit: limit}
	deposits, err := s.ListDeposits(ctx, filter)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, err
	}
	if deposits == nil {
		deposits = []*models.Deposit{}
	}
	if withdrawals == nil {
		withdrawals = []*models.Withdrawal{}
	}
	return &Movements{AtmID: atmID, Deposits: deposits, Withdrawals: withdrawals}, nil
}

func (s *LedgerService) AccountSummary(ctx context.Context, accountID int64) (*models.AccountSummary, error) {
	if err := validation.PositiveID("account", "id", accountID); err != nil {
		return nil, err
	}
	return s.store.SummarizeAccount(ctx, accountID)
}
