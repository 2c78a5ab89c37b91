package memory

import (
	"context"
	"sort"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

type state struct {
	accounts     map[int64]models.Account
	transactions map[int64]models.Transaction
	deposits     map[int64]models.Deposit    // keyed by transaction id
	withdrawals  map[int64]models.Withdrawal // keyed by transaction id

	seqAccount, seqTransaction   int64
	seqDeposit, seqWithdrawal    int64
	seqDepositNote, seqWithdNote int64
}

func newState() *state {
	return &state{
		accounts:     make(map[int64]models.Account),
		transactions: make(map[int64]models.Transaction),
		deposits:     make(map[int64]models.Deposit),
		withdrawals:  make(map[int64]models.Withdrawal),
	}
}

func (s *state) clone() *state {
	c := *s
	c.accounts = make(map[int64]models.Account, len(s.accounts))
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	c.transactions = make(map[int64]models.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		c.transactions[k] = copyTransaction(v)
	}
	// Stored movements are never rewritten, so their banknote slices can be shared.
	c.deposits = make(map[int64]models.Deposit, len(s.deposits))
	for k, v := range s.deposits {
		c.deposits[k] = v
	}
	c.withdrawals = make(map[int64]models.Withdrawal, len(s.withdrawals))
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	return &c
}

func copyTransaction(t models.Transaction) models.Transaction {
	if t.FromAccountID != nil {
		t.FromAccountID = models.Int64Ptr(*t.FromAccountID)
	}
	if t.ToAccountID != nil {
		t.ToAccountID = models.Int64Ptr(*t.ToAccountID)
	}
	if t.IdempotencyKey != nil {
		k := *t.IdempotencyKey
		t.IdempotencyKey = &k
	}
	return t
}

// reader answers lookups against one state. It hands out copies only.
type reader struct {
	st *state
}

func (r reader) FindAccountByID(_ context.Context, id int64) (*models.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, ledgererr.NotFound("account", id)
	}
	return &a, nil
}

func (r reader) FindAccountByNumber(_ context.Context, number string) (*models.Account, error) {
	for _, a := range r.st.accounts {
		if a.AccountNumber == number {
			a := a
			return &a, nil
		}
	}
	return nil, ledgererr.NotFound("account", number)
}

func (r reader) ListAccounts(_ context.Context) ([]*models.Account, error) {
	out := make([]*models.Account, 0, len(r.st.accounts))
	for _, a := range r.st.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reader) FindTransactionByID(_ context.Context, id int64) (*models.Transaction, error) {
	t, ok := r.st.transactions[id]
	if !ok {
		return nil, ledgererr.NotFound("transaction", id)
	}
	t = copyTransaction(t)
	return &t, nil
}

func (r reader) FindTransactionByIdempotencyKey(_ context.Context, key string) (*models.Transaction, error) {
	for _, t := range r.st.transactions {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			t = copyTransaction(t)
			return &t, nil
		}
	}
	return nil, ledgererr.NotFound("transaction", key)
}

func (r reader) ListTransactions(_ context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	out := make([]*models.Transaction, 0)
	for _, t := range r.st.transactions {
		if !matches(t, filter) {
			continue
		}
		t = copyTransaction(t)
		out = append(out, &t)
	}
	// Newest first, the same order the SQL store returns.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(t models.Transaction, f models.TransactionFilter) bool {
	if f.AccountID != 0 && !touches(t, f.AccountID) {
		return false
	}
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func touches(t models.Transaction, accountID int64) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == accountID) ||
		(t.ToAccountID != nil && *t.ToAccountID == accountID)
}

func (r reader) FindDepositByTransactionID(_ context.Context, transactionID int64) (*models.Deposit, error) {
	d, ok := r.st.deposits[transactionID]
	if !ok {
		return nil, ledgererr.NotFound("deposit", transactionID)
	}
	d.Banknotes = append([]models.DepositBanknote(nil), d.Banknotes...)
	return &d, nil
}

func (r reader) FindWithdrawalByTransactionID(_ context.Context, transactionID int64) (*models.Withdrawal, error) {
	w, ok := r.st.withdrawals[transactionID]
	if !ok {
		return nil, ledgererr.NotFound("withdrawal", transactionID)
	}
	w.Banknotes = append([]models.WithdrawalBanknote(nil), w.Banknotes...)
	return &w, nil
}

func (r reader) ListDeposits(_ context.Context, filter models.MovementFilter) ([]*models.Deposit, error) {
	out := make([]*models.Deposit, 0)
	for _, d := range r.st.deposits {
		if filter.AtmID != 0 && d.AtmID != filter.AtmID {
			continue
		}
		if filter.AccountID != 0 {
			t := r.st.transactions[d.TransactionID]
			if t.ToAccountID == nil || *t.ToAccountID != filter.AccountID {
				continue
			}
		}
		d.Banknotes = append([]models.DepositBanknote(nil), d.Banknotes...)
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r reader) ListWithdrawals(_ context.Context, filter models.MovementFilter) ([]*models.Withdrawal, error) {
	out := make([]*models.Withdrawal, 0)
	for _, w := range r.st.withdrawals {
		if filter.AtmID != 0 && w.AtmID != filter.AtmID {
			continue
		}
		if filter.AccountID != 0 && w.AccountID != filter.AccountID {
			continue
		}
		w.Banknotes = append([]models.WithdrawalBanknote(nil), w.Banknotes...)
		out = append(out, &w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r reader) SummarizeAccount(_ context.Context, accountID int64) (*models.AccountSummary, error) {
	a, ok := r.st.accounts[accountID]
	if !ok {
		return nil, ledgererr.NotFound("account", accountID)
	}
	sum := &models.AccountSummary{AccountID: a.ID, Currency: a.Currency}
	for _, t := range r.st.transactions {
		if t.Status != models.StatusCompleted || !touches(t, accountID) {
			continue
		}
		sum.TransactionCount++
		switch t.Type {
		case models.TransactionDeposit:
			sum.Deposited = sum.Deposited.Add(t.Amount)
		case models.TransactionWithdrawal:
			sum.Withdrawn = sum.Withdrawn.Add(t.Amount)
		case models.TransactionTransfer:
			if *t.FromAccountID == accountID {
				sum.TransferredOut = sum.TransferredOut.Add(t.Amount)
			} else {
				sum.TransferredIn = sum.TransferredIn.Add(t.Amount)
			}
		}
	}
	sum.ComputeNet()
	return sum, nil
}
