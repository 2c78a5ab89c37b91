package models

import (
	"time"
)

var (
	// DepositMinAmount is the smallest cash deposit an ATM accepts.
	DepositMinAmount = MustMoney("1.00")
	// WithdrawalMinAmount is the smallest cash withdrawal an ATM pays out.
	WithdrawalMinAmount = MustMoney("5.00")
	// DefaultWithdrawalMaxAmount is used when no ceiling is configured.
	DefaultWithdrawalMaxAmount = MustMoney("10000.00")
)

// BanknoteLine is a (denomination, quantity) pair supplied with a movement.
type BanknoteLine struct {
	Denomination Money `json:"denomination"`
	Quantity     int   `json:"quantity"`
}

// Deposit is the cash-handling detail of a DEPOSIT transaction.
type Deposit struct {
	ID            int64             `json:"id" db:"id"`
	TransactionID int64             `json:"transaction_id" db:"transaction_id" validate:"required,gt=0"`
	AtmID         int64             `json:"atm_id" db:"atm_id" validate:"required,gt=0"`
	Currency      Currency          `json:"currency" db:"currency" validate:"required,currency"`
	TotalAmount   Money             `json:"total_amount" db:"total_amount"`
	ProcessedAt   time.Time         `json:"processed_at" db:"processed_at"`
	Banknotes     []DepositBanknote `json:"banknotes"`
}

// DepositBanknote is one line of a deposit's breakdown.
type DepositBanknote struct {
	ID           int64 `json:"id" db:"id"`
	DepositID    int64 `json:"deposit_id" db:"deposit_id"`
	Denomination Money `json:"denomination" db:"denomination"`
	Quantity     int   `json:"quantity" db:"quantity" validate:"gte=0"`
}

// Withdrawal is the cash-handling detail of a WITHDRAWAL transaction.
type Withdrawal struct {
	ID            int64                `json:"id" db:"id"`
	AccountID     int64                `json:"account_id" db:"account_id" validate:"required,gt=0"`
	TransactionID int64                `json:"transaction_id" db:"transaction_id" validate:"required,gt=0"`
	AtmID         int64                `json:"atm_id" db:"atm_id" validate:"required,gt=0"`
	Currency      Currency             `json:"currency" db:"currency" validate:"required,currency"`
	TotalAmount   Money                `json:"total_amount" db:"total_amount"`
	ProcessedAt   time.Time            `json:"processed_at" db:"processed_at"`
	Banknotes     []WithdrawalBanknote `json:"banknotes"`
}

// WithdrawalBanknote is one line of a withdrawal's breakdown.
type WithdrawalBanknote struct {
	ID           int64 `json:"id" db:"id"`
	WithdrawalID int64 `json:"withdrawal_id" db:"withdrawal_id"`
	Denomination Money `json:"denomination" db:"denomination"`
	Quantity     int   `json:"quantity" db:"quantity" validate:"gt=0"`
}

// DepositBanknotesFrom converts request lines into deposit line items.
func DepositBanknotesFrom(lines []BanknoteLine) []DepositBanknote {
	if len(lines) == 0 {
		return nil
	}
	out := make([]DepositBanknote, 0, len(lines))
	for _, l := range lines {
		out = append(out, DepositBanknote{Denomination: l.Denomination, Quantity: l.Quantity})
	}
	return out
}

// WithdrawalBanknotesFrom converts request lines into withdrawal line items.
func WithdrawalBanknotesFrom(lines []BanknoteLine) []WithdrawalBanknote {
	if len(lines) == 0 {
		return nil
	}
	out := make([]WithdrawalBanknote, 0, len(lines))
	for _, l := range lines {
		out = append(out, WithdrawalBanknote{Denomination: l.Denomination, Quantity: l.Quantity})
	}
	return out
}

// MovementFilter narrows deposit and withdrawal listings. Zero values match everything.
type MovementFilter struct {
	AtmID     int64
	AccountID int64
	Limit     int
}
