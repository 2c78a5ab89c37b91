package models

import (
	"time"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTransfer   TransactionType = "TRANSFER"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdrawal, TransactionTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusRolledBack TransactionStatus = "ROLLED_BACK"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

// Transaction is the immutable record of one monetary movement.
type Transaction struct {
	ID             int64             `json:"id" db:"id"`
	FromAccountID  *int64            `json:"from_account_id,omitempty" db:"from_account_id" validate:"omitempty,gt=0"`
	ToAccountID    *int64            `json:"to_account_id,omitempty" db:"to_account_id" validate:"omitempty,gt=0"`
	Amount         Money             `json:"amount" db:"amount"`
	Currency       Currency          `json:"currency" db:"currency" validate:"required,currency"`
	Type           TransactionType   `json:"type" db:"transaction_type" validate:"required,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	Status         TransactionStatus `json:"status" db:"status" validate:"required,oneof=PENDING COMPLETED FAILED ROLLED_BACK"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty" db:"idempotency_key" validate:"omitempty,uuid"`
	ProcessedAt    time.Time         `json:"processed_at" db:"processed_at"`
}

// TransactionFilter narrows ListTransactions. Zero values match everything.
type TransactionFilter struct {
	AccountID int64
	Type      TransactionType
	Status    TransactionStatus
	Limit     int
}

// Int64Ptr is a small helper for optional account references.
func Int64Ptr(v int64) *int64 { return &v }
