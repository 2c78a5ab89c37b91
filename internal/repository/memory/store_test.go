package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
)

func seedAccount(t *testing.T, s *Store, number, balance string) *models.Account {
	t.Helper()
	var created *models.Account
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		created, err = tx.CreateAccount(ctx, &models.Account{
			AccountNumber: number,
			Balance:       models.MustMoney(balance),
			Currency:      models.USD,
		})
		return err
	})
	require.NoError(t, err)
	return created
}

func TestStore_CommitMakesWritesVisible(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "100.00")

	assert.Equal(t, int64(1), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := s.FindAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(models.MustMoney("100")))

	byNumber, err := s.FindAccountByNumber(context.Background(), "1000000000000001")
	require.NoError(t, err)
	assert.Equal(t, a.ID, byNumber.ID)
}

func TestStore_ErrorDiscardsEveryWrite(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "100.00")
	boom := errors.New("boom")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.LockAccounts(ctx, a.ID)
		require.NoError(t, err)
		locked[0].Balance = models.MustMoney("0.00")
		if _, err := tx.UpdateAccount(ctx, locked[0]); err != nil {
			return err
		}
		if _, err := tx.CreateTransaction(ctx, &models.Transaction{
			FromAccountID: models.Int64Ptr(a.ID),
			Amount:        models.MustMoney("100.00"),
			Currency:      models.USD,
			Type:          models.TransactionWithdrawal,
			Status:        models.StatusPending,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(models.MustMoney("100.00")))

	txs, err := s.ListTransactions(context.Background(), models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestStore_PanicDiscardsWritesAndReleases(t *testing.T) {
	s := New(WithLockTimeout(50 * time.Millisecond))

	assert.Panics(t, func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			_, _ = tx.CreateAccount(ctx, &models.Account{AccountNumber: "1000000000000001", Currency: models.USD})
			panic("boom")
		})
	})

	accounts, err := s.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)

	// The next unit of work must not block on the abandoned one.
	seedAccount(t, s, "1000000000000002", "1.00")
}

func TestStore_LockWaitIsBounded(t *testing.T) {
	s := New(WithLockTimeout(20 * time.Millisecond))
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		t.Fatal("second unit of work must not run")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererr.ErrPersistence)
	assert.True(t, ledgererr.IsRetryable(err))
}

func TestStore_CancelledContextWhileWaiting(t *testing.T) {
	s := New()
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error { return nil })
	assert.True(t, ledgererr.IsRetryable(err))
}

func TestStore_TxIsUnusableAfterCommit(t *testing.T) {
	s := New()
	var leaked repository.Tx
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		leaked = tx
		return nil
	}))

	_, err := leaked.CreateAccount(context.Background(), &models.Account{AccountNumber: "1000000000000001", Currency: models.USD})
	assert.ErrorIs(t, err, ledgererr.ErrPersistence)
}

func TestTx_LockAccountsOrderAndNotFound(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "1.00")
	b := seedAccount(t, s, "1000000000000002", "2.00")

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.LockAccounts(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got[0].ID)
		assert.Equal(t, a.ID, got[1].ID)

		_, err = tx.LockAccounts(ctx, a.ID, 99)
		return err
	})
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestTx_Uniqueness(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "1.00")
	key := "7f1c2a9e-0a55-4d5e-9a0f-3c1b2d4e5f60"

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.CreateAccount(ctx, &models.Account{AccountNumber: a.AccountNumber, Currency: models.USD})
		return err
	})
	assert.ErrorIs(t, err, ledgererr.ErrConflict)

	newTx := func() *models.Transaction {
		k := key
		return &models.Transaction{
			ToAccountID: models.Int64Ptr(a.ID), Amount: models.MustMoney("10.00"), Currency: models.USD,
			Type: models.TransactionDeposit, Status: models.StatusCompleted, IdempotencyKey: &k,
		}
	}
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.CreateTransaction(ctx, newTx())
		return err
	}))
	err = s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.CreateTransaction(ctx, newTx())
		return err
	})
	assert.ErrorIs(t, err, ledgererr.ErrConflict)

	found, err := s.FindTransactionByIdempotencyKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.ID)
}

func TestTx_CreateTransactionRejectsUnknownAccount(t *testing.T) {
	s := New()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.CreateTransaction(ctx, &models.Transaction{
			ToAccountID: models.Int64Ptr(7), Amount: models.MustMoney("10.00"), Currency: models.USD,
			Type: models.TransactionDeposit, Status: models.StatusPending,
		})
		return err
	})
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestTx_MovementsAndSummary(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "0.00")
	b := seedAccount(t, s, "1000000000000002", "0.00")

	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		dep, err := tx.CreateTransaction(ctx, &models.Transaction{
			ToAccountID: models.Int64Ptr(a.ID), Amount: models.MustMoney("150.00"), Currency: models.USD,
			Type: models.TransactionDeposit, Status: models.StatusCompleted,
		})
		require.NoError(t, err)
		d, err := tx.CreateDeposit(ctx, &models.Deposit{
			TransactionID: dep.ID, AtmID: 3, Currency: models.USD, TotalAmount: models.MustMoney("150.00"),
			Banknotes: []models.DepositBanknote{
				{Denomination: models.MustMoney("100"), Quantity: 1},
				{Denomination: models.MustMoney("50"), Quantity: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, d.ID, d.Banknotes[1].DepositID)
		assert.NotEqual(t, d.Banknotes[0].ID, d.Banknotes[1].ID)

		wd, err := tx.CreateTransaction(ctx, &models.Transaction{
			FromAccountID: models.Int64Ptr(a.ID), Amount: models.MustMoney("20.00"), Currency: models.USD,
			Type: models.TransactionWithdrawal, Status: models.StatusCompleted,
		})
		require.NoError(t, err)
		_, err = tx.CreateWithdrawal(ctx, &models.Withdrawal{
			AccountID: a.ID, TransactionID: wd.ID, AtmID: 3, Currency: models.USD, TotalAmount: models.MustMoney("20.00"),
			Banknotes: []models.WithdrawalBanknote{{Denomination: models.MustMoney("20"), Quantity: 1}},
		})
		require.NoError(t, err)

		_, err = tx.CreateTransaction(ctx, &models.Transaction{
			FromAccountID: models.Int64Ptr(a.ID), ToAccountID: models.Int64Ptr(b.ID),
			Amount: models.MustMoney("30.00"), Currency: models.USD,
			Type: models.TransactionTransfer, Status: models.StatusCompleted,
		})
		require.NoError(t, err)

		_, err = tx.CreateTransaction(ctx, &models.Transaction{
			ToAccountID: models.Int64Ptr(a.ID), Amount: models.MustMoney("999.00"), Currency: models.USD,
			Type: models.TransactionDeposit, Status: models.StatusFailed,
		})
		return err
	}))

	sum, err := s.SummarizeAccount(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", sum.Deposited.String())
	assert.Equal(t, "20.00", sum.Withdrawn.String())
	assert.Equal(t, "30.00", sum.TransferredOut.String())
	assert.Equal(t, "100.00", sum.Net.String())
	assert.Equal(t, 3, sum.TransactionCount)

	sumB, err := s.SummarizeAccount(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", sumB.TransferredIn.String())

	dep, err := s.FindDepositByTransactionID(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, dep.Banknotes, 2)

	_, err = s.FindWithdrawalByTransactionID(context.Background(), 1)
	assert.ErrorIs(t, err, ledgererr.ErrNotFound)

	list, err := s.ListTransactions(context.Background(), models.TransactionFilter{AccountID: a.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(4), list[0].ID)

	completed, err := s.ListTransactions(context.Background(), models.TransactionFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 3)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "10.00")

	got, err := s.FindAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	got.Balance = models.MustMoney("9999.00")

	again, err := s.FindAccountByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", again.Balance.String())
}

func TestStore_MovementListing(t *testing.T) {
	s := New()
	a := seedAccount(t, s, "1000000000000001", "0.00")
	b := seedAccount(t, s, "1000000000000002", "500.00")

	deposit := func(ctx context.Context, tx repository.Tx, account, atm int64, amount string) {
		tr, err := tx.CreateTransaction(ctx, &models.Transaction{
			ToAccountID: models.Int64Ptr(account), Amount: models.MustMoney(amount), Currency: models.USD,
			Type: models.TransactionDeposit, Status: models.StatusCompleted,
		})
		require.NoError(t, err)
		_, err = tx.CreateDeposit(ctx, &models.Deposit{
			TransactionID: tr.ID, AtmID: atm, Currency: models.USD, TotalAmount: models.MustMoney(amount),
			Banknotes: []models.DepositBanknote{{Denomination: models.MustMoney(amount), Quantity: 1}},
		})
		require.NoError(t, err)
	}
	withdraw := func(ctx context.Context, tx repository.Tx, account, atm int64, amount string) {
		tr, err := tx.CreateTransaction(ctx, &models.Transaction{
			FromAccountID: models.Int64Ptr(account), Amount: models.MustMoney(amount), Currency: models.USD,
			Type: models.TransactionWithdrawal, Status: models.StatusCompleted,
		})
		require.NoError(t, err)
		_, err = tx.CreateWithdrawal(ctx, &models.Withdrawal{
			AccountID: account, TransactionID: tr.ID, AtmID: atm, Currency: models.USD, TotalAmount: models.MustMoney(amount),
		})
		require.NoError(t, err)
	}

	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		deposit(ctx, tx, a.ID, 3, "100.00")
		deposit(ctx, tx, b.ID, 3, "50.00")
		deposit(ctx, tx, a.ID, 4, "20.00")
		withdraw(ctx, tx, b.ID, 3, "10.00")
		withdraw(ctx, tx, b.ID, 4, "20.00")
		return nil
	}))
	ctx := context.Background()

	byAtm, err := s.ListDeposits(ctx, models.MovementFilter{AtmID: 3})
	require.NoError(t, err)
	require.Len(t, byAtm, 2)
	assert.Equal(t, "50.00", byAtm[0].TotalAmount.String())
	assert.Equal(t, "100.00", byAtm[1].TotalAmount.String())

	byAccount, err := s.ListDeposits(ctx, models.MovementFilter{AccountID: a.ID})
	require.NoError(t, err)
	require.Len(t, byAccount, 2)
	assert.Equal(t, int64(4), byAccount[0].AtmID)

	both, err := s.ListDeposits(ctx, models.MovementFilter{AtmID: 3, AccountID: a.ID, Limit: 5})
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Len(t, both[0].Banknotes, 1)

	limited, err := s.ListDeposits(ctx, models.MovementFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "20.00", limited[0].TotalAmount.String())

	outs, err := s.ListWithdrawals(ctx, models.MovementFilter{AtmID: 4})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, b.ID, outs[0].AccountID)

	none, err := s.ListWithdrawals(ctx, models.MovementFilter{AccountID: a.ID})
	require.NoError(t, err)
	assert.Empty(t, none)

	// Mutating a listed deposit leaves the stored lines untouched.
	both[0].Banknotes[0].Quantity = 99
	again, err := s.ListDeposits(ctx, models.MovementFilter{AtmID: 3, AccountID: a.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Banknotes[0].Quantity)
}
