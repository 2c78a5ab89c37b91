package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruralpay/atmledger/internal/models"
)

const transactionColumns = `id, from_account_id, to_account_id, amount, currency, transaction_type, status, idempotency_key, processed_at`

func scanTransaction(row scanner) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.Amount, &t.Currency,
		&t.Type, &t.Status, &t.IdempotencyKey, &t.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r queries) FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return queryOne(ctx, r.q, "postgres.FindTransactionByID", notFound("transaction", id), scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

func (r queries) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	return queryOne(ctx, r.q, "postgres.FindTransactionByIdempotencyKey", notFound("transaction", key), scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key)
}

func (r queries) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.AccountID != 0 {
		p := arg(filter.AccountID)
		where = append(where, "(from_account_id = "+p+" OR to_account_id = "+p+")")
	}
	if filter.Type != "" {
		where = append(where, "transaction_type = "+arg(filter.Type))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}

	return queryMany(ctx, r.q, "postgres.ListTransactions", scanTransaction, b.String(), args...)
}

func (r queries) SummarizeAccount(ctx context.Context, accountID int64) (*models.AccountSummary, error) {
	account, err := r.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sum := &models.AccountSummary{AccountID: account.ID, Currency: account.Currency}
	err = r.q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'DEPOSIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'WITHDRAWAL'), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'TRANSFER' AND to_account_id = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'TRANSFER' AND from_account_id = $1), 0),
			COUNT(*)
		FROM transactions
		WHERE status = 'COMPLETED' AND (from_account_id = $1 OR to_account_id = $1)`,
		accountID).Scan(&sum.Deposited, &sum.Withdrawn, &sum.TransferredIn, &sum.TransferredOut, &sum.TransactionCount)
	if err != nil {
		return nil, mapError("postgres.SummarizeAccount", err)
	}
	sum.ComputeNet()
	return sum, nil
}

func (t *pgTx) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return queryOne(ctx, t.q, "postgres.CreateTransaction", notFound("transaction", 0), scanTransaction,
		`INSERT INTO transactions (from_account_id, to_account_id, amount, currency, transaction_type, status, idempotency_key, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING `+transactionColumns,
		tx.FromAccountID, tx.ToAccountID, tx.Amount, tx.Currency, tx.Type, tx.Status, tx.IdempotencyKey)
}

func (t *pgTx) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error) {
	return queryOne(ctx, t.q, "postgres.UpdateTransactionStatus", notFound("transaction", id), scanTransaction,
		`UPDATE transactions SET status = $2 WHERE id = $1 RETURNING `+transactionColumns,
		id, status)
}
