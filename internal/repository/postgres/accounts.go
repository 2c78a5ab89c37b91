package postgres

import (
	"context"
	"sort"

	"github.com/lib/pq"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

const accountColumns = `id, account_number, balance, currency, created_at, updated_at`

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.AccountNumber, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r queries) FindAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	return queryOne(ctx, r.q, "postgres.FindAccountByID", notFound("account", id), scanAccount,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r queries) FindAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	return queryOne(ctx, r.q, "postgres.FindAccountByNumber", notFound("account", number), scanAccount,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number)
}

func (r queries) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return queryMany(ctx, r.q, "postgres.ListAccounts", scanAccount,
		`SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

// LockAccounts locks every requested row in one statement. Rows are locked in
// the ORDER BY order, so two units of work touching the same accounts always
// queue behind each other instead of deadlocking.
func (t *pgTx) LockAccounts(ctx context.Context, ids ...int64) ([]*models.Account, error) {
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	locked, err := queryMany(ctx, t.q, "postgres.LockAccounts", scanAccount,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(ordered))
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Account, len(locked))
	for _, a := range locked {
		byID[a.ID] = a
	}
	for _, id := range ordered {
		if _, ok := byID[id]; !ok {
			return nil, ledgererr.NotFound("account", id)
		}
	}

	out := make([]*models.Account, 0, len(ids))
	for _, id := range ids {
		a := *byID[id]
		out = append(out, &a)
	}
	return out, nil
}

func (t *pgTx) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	return queryOne(ctx, t.q, "postgres.CreateAccount", notFound("account", account.AccountNumber), scanAccount,
		`INSERT INTO accounts (account_number, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING `+accountColumns,
		account.AccountNumber, account.Balance, account.Currency)
}

func (t *pgTx) UpdateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	return queryOne(ctx, t.q, "postgres.UpdateAccount", notFound("account", account.ID), scanAccount,
		`UPDATE accounts
		SET account_number = $2, balance = $3, currency = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+accountColumns,
		account.ID, account.AccountNumber, account.Balance, account.Currency)
}
