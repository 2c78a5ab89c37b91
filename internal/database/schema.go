package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Foreign keys are named <table>_<parent>_fk; the postgres repository derives
// the missing entity from that suffix.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		account_number VARCHAR(64) NOT NULL,
		balance NUMERIC(19, 2) NOT NULL DEFAULT 0,
		currency CHAR(3) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT accounts_account_number_key UNIQUE (account_number),
		CONSTRAINT accounts_balance_check CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		from_account_id BIGINT,
		to_account_id BIGINT,
		amount NUMERIC(19, 2) NOT NULL,
		currency CHAR(3) NOT NULL,
		transaction_type VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL,
		idempotency_key VARCHAR(64),
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT transactions_from_account_fk FOREIGN KEY (from_account_id) REFERENCES accounts (id),
		CONSTRAINT transactions_to_account_fk FOREIGN KEY (to_account_id) REFERENCES accounts (id),
		CONSTRAINT transactions_idempotency_key_key UNIQUE (idempotency_key),
		CONSTRAINT transactions_amount_check CHECK (amount > 0),
		CONSTRAINT transactions_type_check CHECK (transaction_type IN ('DEPOSIT', 'WITHDRAWAL', 'TRANSFER')),
		CONSTRAINT transactions_status_check CHECK (status IN ('PENDING', 'COMPLETED', 'FAILED', 'ROLLED_BACK'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_from_account ON transactions (from_account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_to_account ON transactions (to_account_id)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL,
		atm_id BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		total_amount NUMERIC(19, 2) NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT deposits_transaction_fk FOREIGN KEY (transaction_id) REFERENCES transactions (id),
		CONSTRAINT deposits_transaction_id_key UNIQUE (transaction_id)
	)`,
	`CREATE TABLE IF NOT EXISTS deposit_banknotes (
		id BIGSERIAL PRIMARY KEY,
		deposit_id BIGINT NOT NULL,
		denomination NUMERIC(19, 2) NOT NULL,
		quantity INTEGER NOT NULL,
		CONSTRAINT deposit_banknotes_deposit_fk FOREIGN KEY (deposit_id) REFERENCES deposits (id),
		CONSTRAINT deposit_banknotes_quantity_check CHECK (quantity >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposit_banknotes_deposit ON deposit_banknotes (deposit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_atm ON deposits (atm_id)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL,
		transaction_id BIGINT NOT NULL,
		atm_id BIGINT NOT NULL,
		currency CHAR(3) NOT NULL,
		total_amount NUMERIC(19, 2) NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT withdrawals_account_fk FOREIGN KEY (account_id) REFERENCES accounts (id),
		CONSTRAINT withdrawals_transaction_fk FOREIGN KEY (transaction_id) REFERENCES transactions (id),
		CONSTRAINT withdrawals_transaction_id_key UNIQUE (transaction_id)
	)`,
	`CREATE TABLE IF NOT EXISTS withdrawal_banknotes (
		id BIGSERIAL PRIMARY KEY,
		withdrawal_id BIGINT NOT NULL,
		denomination NUMERIC(19, 2) NOT NULL,
		quantity INTEGER NOT NULL,
		CONSTRAINT withdrawal_banknotes_withdrawal_fk FOREIGN KEY (withdrawal_id) REFERENCES withdrawals (id),
		CONSTRAINT withdrawal_banknotes_quantity_check CHECK (quantity > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawal_banknotes_withdrawal ON withdrawal_banknotes (withdrawal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_atm ON withdrawals (atm_id)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_account ON withdrawals (account_id)`,
}

// Migrate creates the ledger tables if they do not exist. All statements run
// in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
