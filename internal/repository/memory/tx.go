package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
)

// memTx writes into the staged state of one unit of work.
type memTx struct {
	reader
	store  *Store
	closed bool
}

var _ repository.Tx = (*memTx)(nil)

func (t *memTx) check(op string) error {
	if t.closed {
		return ledgererr.Persistence(op, errTxClosed)
	}
	return nil
}

func (t *memTx) LockAccounts(ctx context.Context, ids ...int64) ([]*models.Account, error) {
	if err := t.check("memory.LockAccounts"); err != nil {
		return nil, err
	}
	// The unit of work already holds the store exclusively; walking ids in
	// ascending order only keeps the reported failure the same as in SQL.
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	for _, id := range ordered {
		if _, ok := t.st.accounts[id]; !ok {
			return nil, ledgererr.NotFound("account", id)
		}
	}

	out := make([]*models.Account, 0, len(ids))
	for _, id := range ids {
		a := t.st.accounts[id]
		out = append(out, &a)
	}
	return out, nil
}

func (t *memTx) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := t.check("memory.CreateAccount"); err != nil {
		return nil, err
	}
	if err := t.uniqueNumber(account.AccountNumber, 0); err != nil {
		return nil, err
	}
	if account.Balance.IsNegative() {
		return nil, negativeBalance(account.Balance)
	}

	t.st.seqAccount++
	a := *account
	a.ID = t.st.seqAccount
	a.CreatedAt = t.store.now()
	a.UpdatedAt = a.CreatedAt
	t.st.accounts[a.ID] = a
	return &a, nil
}

func (t *memTx) UpdateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if err := t.check("memory.UpdateAccount"); err != nil {
		return nil, err
	}
	current, ok := t.st.accounts[account.ID]
	if !ok {
		return nil, ledgererr.NotFound("account", account.ID)
	}
	if err := t.uniqueNumber(account.AccountNumber, account.ID); err != nil {
		return nil, err
	}
	if account.Balance.IsNegative() {
		return nil, negativeBalance(account.Balance)
	}

	current.AccountNumber = account.AccountNumber
	current.Balance = account.Balance
	current.Currency = account.Currency
	current.UpdatedAt = t.store.now()
	t.st.accounts[current.ID] = current
	return &current, nil
}

func (t *memTx) uniqueNumber(number string, self int64) error {
	for id, a := range t.st.accounts {
		if id != self && a.AccountNumber == number {
			return &ledgererr.Error{
				Kind: ledgererr.KindConflict, Entity: "account", Field: "account_number",
				Msg: fmt.Sprintf("account number %s already exists", number),
			}
		}
	}
	return nil
}

func negativeBalance(b models.Money) error {
	return ledgererr.Validation("account", "balance", ledgererr.ReasonOutOfRange, "balance must not be negative, got %s", b)
}

func (t *memTx) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := t.check("memory.CreateTransaction"); err != nil {
		return nil, err
	}
	for _, ref := range []*int64{tx.FromAccountID, tx.ToAccountID} {
		if ref == nil {
			continue
		}
		if _, ok := t.st.accounts[*ref]; !ok {
			return nil, ledgererr.NotFound("account", *ref)
		}
	}
	if tx.IdempotencyKey != nil {
		for _, existing := range t.st.transactions {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *tx.IdempotencyKey {
				return nil, &ledgererr.Error{
					Kind: ledgererr.KindConflict, Entity: "transaction", Field: "idempotency_key",
					Msg: fmt.Sprintf("idempotency key %s already used", *tx.IdempotencyKey),
				}
			}
		}
	}

	t.st.seqTransaction++
	rec := copyTransaction(*tx)
	rec.ID = t.st.seqTransaction
	rec.ProcessedAt = t.store.now()
	t.st.transactions[rec.ID] = rec

	out := copyTransaction(rec)
	return &out, nil
}

func (t *memTx) UpdateTransactionStatus(ctx context.Context, id int64, status models.TransactionStatus) (*models.Transaction, error) {
	if err := t.check("memory.UpdateTransactionStatus"); err != nil {
		return nil, err
	}
	rec, ok := t.st.transactions[id]
	if !ok {
		return nil, ledgererr.NotFound("transaction", id)
	}
	rec.Status = status
	t.st.transactions[id] = rec

	out := copyTransaction(rec)
	return &out, nil
}

func (t *memTx) CreateDeposit(ctx context.Context, deposit *models.Deposit) (*models.Deposit, error) {
	if err := t.check("memory.CreateDeposit"); err != nil {
		return nil, err
	}
	if _, ok := t.st.transactions[deposit.TransactionID]; !ok {
		return nil, ledgererr.NotFound("transaction", deposit.TransactionID)
	}
	if _, dup := t.st.deposits[deposit.TransactionID]; dup {
		return nil, &ledgererr.Error{
			Kind: ledgererr.KindConflict, Entity: "deposit", Field: "transaction_id",
			Msg: fmt.Sprintf("transaction %d already has a deposit", deposit.TransactionID),
		}
	}

	t.st.seqDeposit++
	d := *deposit
	d.ID = t.st.seqDeposit
	d.ProcessedAt = t.store.now()
	d.Banknotes = make([]models.DepositBanknote, len(deposit.Banknotes))
	for i, b := range deposit.Banknotes {
		t.st.seqDepositNote++
		b.ID = t.st.seqDepositNote
		b.DepositID = d.ID
		d.Banknotes[i] = b
	}
	t.st.deposits[d.TransactionID] = d

	out := d
	out.Banknotes = append([]models.DepositBanknote(nil), d.Banknotes...)
	return &out, nil
}

func (t *memTx) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) (*models.Withdrawal, error) {
	if err := t.check("memory.CreateWithdrawal"); err != nil {
		return nil, err
	}
	if _, ok := t.st.transactions[withdrawal.TransactionID]; !ok {
		return nil, ledgererr.NotFound("transaction", withdrawal.TransactionID)
	}
	if _, ok := t.st.accounts[withdrawal.AccountID]; !ok {
		return nil, ledgererr.NotFound("account", withdrawal.AccountID)
	}
	if _, dup := t.st.withdrawals[withdrawal.TransactionID]; dup {
		return nil, &ledgererr.Error{
			Kind: ledgererr.KindConflict, Entity: "withdrawal", Field: "transaction_id",
			Msg: fmt.Sprintf("transaction %d already has a withdrawal", withdrawal.TransactionID),
		}
	}

	t.st.seqWithdrawal++
	w := *withdrawal
	w.ID = t.st.seqWithdrawal
	w.ProcessedAt = t.store.now()
	w.Banknotes = make([]models.WithdrawalBanknote, len(withdrawal.Banknotes))
	for i, b := range withdrawal.Banknotes {
		t.st.seqWithdNote++
		b.ID = t.st.seqWithdNote
		b.WithdrawalID = w.ID
		w.Banknotes[i] = b
	}
	t.st.withdrawals[w.TransactionID] = w

	out := w
	out.Banknotes = append([]models.WithdrawalBanknote(nil), w.Banknotes...)
	return &out, nil
}
