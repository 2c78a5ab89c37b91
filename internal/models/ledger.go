package models

import (
	"time"
)

// Account is a single-currency ledger account.
type Account struct {
	ID            int64     `json:"id" db:"id"`
	AccountNumber string    `json:"account_number" db:"account_number" validate:"required,len=16,numeric"`
	Balance       Money     `json:"balance" db:"balance"`
	Currency      Currency  `json:"currency" db:"currency" validate:"required,currency"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// AccountSummary aggregates the completed movements touching one account.
type AccountSummary struct {
	AccountID        int64    `json:"account_id"`
	Currency         Currency `json:"currency"`
	Deposited        Money    `json:"deposited"`
	Withdrawn        Money    `json:"withdrawn"`
	TransferredIn    Money    `json:"transferred_in"`
	TransferredOut   Money    `json:"transferred_out"`
	Net              Money    `json:"net"`
	TransactionCount int      `json:"transaction_count"`
}

// ComputeNet fills Net from the four directional totals.
func (s *AccountSummary) ComputeNet() {
	s.Net = s.Deposited.Add(s.TransferredIn).Sub(s.Withdrawn).Sub(s.TransferredOut)
}
