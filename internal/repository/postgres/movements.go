package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

const (
	depositColumns    = `id, transaction_id, atm_id, currency, total_amount, processed_at`
	withdrawalColumns = `id, account_id, transaction_id, atm_id, currency, total_amount, processed_at`
)

func scanDeposit(row scanner) (*models.Deposit, error) {
	var d models.Deposit
	if err := row.Scan(&d.ID, &d.TransactionID, &d.AtmID, &d.Currency, &d.TotalAmount, &d.ProcessedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDepositBanknote(row scanner) (*models.DepositBanknote, error) {
	var b models.DepositBanknote
	if err := row.Scan(&b.ID, &b.DepositID, &b.Denomination, &b.Quantity); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanWithdrawal(row scanner) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(&w.ID, &w.AccountID, &w.TransactionID, &w.AtmID, &w.Currency, &w.TotalAmount, &w.ProcessedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWithdrawalBanknote(row scanner) (*models.WithdrawalBanknote, error) {
	var b models.WithdrawalBanknote
	if err := row.Scan(&b.ID, &b.WithdrawalID, &b.Denomination, &b.Quantity); err != nil {
		return nil, err
	}
	return &b, nil
}

func notFound(entity string, id any) func() error {
	return func() error { return ledgererr.NotFound(entity, id) }
}

func (r queries) FindDepositByTransactionID(ctx context.Context, transactionID int64) (*models.Deposit, error) {
	d, err := queryOne(ctx, r.q, "postgres.FindDepositByTransactionID", notFound("deposit", transactionID), scanDeposit,
		`SELECT `+depositColumns+` FROM deposits WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return nil, err
	}
	if err := r.loadDepositBanknotes(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r queries) loadDepositBanknotes(ctx context.Context, d *models.Deposit) error {
	notes, err := queryMany(ctx, r.q, "postgres.FindDepositBanknotes", scanDepositBanknote,
		`SELECT id, deposit_id, denomination, quantity FROM deposit_banknotes WHERE deposit_id = $1 ORDER BY id`, d.ID)
	if err != nil {
		return err
	}
	for _, n := range notes {
		d.Banknotes = append(d.Banknotes, *n)
	}
	return nil
}

func (r queries) FindWithdrawalByTransactionID(ctx context.Context, transactionID int64) (*models.Withdrawal, error) {
	w, err := queryOne(ctx, r.q, "postgres.FindWithdrawalByTransactionID", notFound("withdrawal", transactionID), scanWithdrawal,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return nil, err
	}
	if err := r.loadWithdrawalBanknotes(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (r queries) loadWithdrawalBanknotes(ctx context.Context, w *models.Withdrawal) error {
	notes, err := queryMany(ctx, r.q, "postgres.FindWithdrawalBanknotes", scanWithdrawalBanknote,
		`SELECT id, withdrawal_id, denomination, quantity FROM withdrawal_banknotes WHERE withdrawal_id = $1 ORDER BY id`, w.ID)
	if err != nil {
		return err
	}
	for _, n := range notes {
		w.Banknotes = append(w.Banknotes, *n)
	}
	return nil
}

// movementQuery appends the filter conditions and ordering to base.
func movementQuery(base, atmCol, accountCol, idCol string, filter models.MovementFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AtmID != 0 {
		where = append(where, atmCol+" = "+arg(filter.AtmID))
	}
	if filter.AccountID != 0 {
		where = append(where, accountCol+" = "+arg(filter.AccountID))
	}

	var b strings.Builder
	b.WriteString(base)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY " + idCol + " DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	return b.String(), args
}

func (r queries) ListDeposits(ctx context.Context, filter models.MovementFilter) ([]*models.Deposit, error) {
	query, args := movementQuery(
		`SELECT d.id, d.transaction_id, d.atm_id, d.currency, d.total_amount, d.processed_at
		FROM deposits d JOIN transactions t ON t.id = d.transaction_id`,
		"d.atm_id", "t.to_account_id", "d.id", filter)
	deposits, err := queryMany(ctx, r.q, "postgres.ListDeposits", scanDeposit, query, args...)
	if err != nil {
		return nil, err
	}
	for _, d := range deposits {
		if err := r.loadDepositBanknotes(ctx, d); err != nil {
			return nil, err
		}
	}
	return deposits, nil
}

func (r queries) ListWithdrawals(ctx context.Context, filter models.MovementFilter) ([]*models.Withdrawal, error) {
	query, args := movementQuery(`SELECT `+withdrawalColumns+` FROM withdrawals`,
		"atm_id", "account_id", "id", filter)
	withdrawals, err := queryMany(ctx, r.q, "postgres.ListWithdrawals", scanWithdrawal, query, args...)
	if err != nil {
		return nil, err
	}
	for _, w := range withdrawals {
		if err := r.loadWithdrawalBanknotes(ctx, w); err != nil {
			return nil, err
		}
	}
	return withdrawals, nil
}

func (t *pgTx) CreateDeposit(ctx context.Context, deposit *models.Deposit) (*models.Deposit, error) {
	d, err := queryOne(ctx, t.q, "postgres.CreateDeposit", notFound("transaction", deposit.TransactionID), scanDeposit,
		`INSERT INTO deposits (transaction_id, atm_id, currency, total_amount, processed_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING `+depositColumns,
		deposit.TransactionID, deposit.AtmID, deposit.Currency, deposit.TotalAmount)
	if err != nil {
		return nil, err
	}

	for _, b := range deposit.Banknotes {
		note, err := queryOne(ctx, t.q, "postgres.CreateDepositBanknote", notFound("deposit", d.ID), scanDepositBanknote,
			`INSERT INTO deposit_banknotes (deposit_id, denomination, quantity)
			VALUES ($1, $2, $3)
			RETURNING id, deposit_id, denomination, quantity`,
			d.ID, b.Denomination, b.Quantity)
		if err != nil {
			return nil, err
		}
		d.Banknotes = append(d.Banknotes, *note)
	}
	return d, nil
}

func (t *pgTx) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) (*models.Withdrawal, error) {
	w, err := queryOne(ctx, t.q, "postgres.CreateWithdrawal", notFound("transaction", withdrawal.TransactionID), scanWithdrawal,
		`INSERT INTO withdrawals (account_id, transaction_id, atm_id, currency, total_amount, processed_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING `+withdrawalColumns,
		withdrawal.AccountID, withdrawal.TransactionID, withdrawal.AtmID, withdrawal.Currency, withdrawal.TotalAmount)
	if err != nil {
		return nil, err
	}

	for _, b := range withdrawal.Banknotes {
		note, err := queryOne(ctx, t.q, "postgres.CreateWithdrawalBanknote", notFound("withdrawal", w.ID), scanWithdrawalBanknote,
			`INSERT INTO withdrawal_banknotes (withdrawal_id, denomination, quantity)
			VALUES ($1, $2, $3)
			RETURNING id, withdrawal_id, denomination, quantity`,
			w.ID, b.Denomination, b.Quantity)
		if err != nil {
			return nil, err
		}
		w.Banknotes = append(w.Banknotes, *note)
	}
	return w, nil
}
