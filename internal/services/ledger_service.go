package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/audit"
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/repository"
	"github.com/ruralpay/atmledger/internal/validation"
)

// Auditor records the outcome of every ledger operation.
type Auditor interface {
	Record(e audit.Event)
	RecordTransaction(tx *models.Transaction)
	RecordFailure(eventType string, accountID, counterparty int64, amount models.Money, currency models.Currency, err error)
}

type LedgerConfig struct {
	// WithdrawalMax is the withdrawal ceiling. Zero means models.DefaultWithdrawalMaxAmount.
	WithdrawalMax models.Money
}

type DepositRequest struct {
	AccountID      int64                 `json:"account_id"`
	AtmID          int64                 `json:"atm_id"`
	Amount         models.Money          `json:"amount"`
	Currency       models.Currency       `json:"currency"`
	Banknotes      []models.BanknoteLine `json:"banknotes,omitempty"`
	IdempotencyKey string                `json:"-"`
}

type WithdrawalRequest struct {
	AccountID      int64                 `json:"account_id"`
	AtmID          int64                 `json:"atm_id"`
	Amount         models.Money          `json:"amount"`
	Currency       models.Currency       `json:"currency"`
	Banknotes      []models.BanknoteLine `json:"banknotes,omitempty"`
	IdempotencyKey string                `json:"-"`
}

type TransferRequest struct {
	FromAccountID  int64           `json:"from_account_id"`
	ToAccountID    int64           `json:"to_account_id"`
	Amount         models.Money    `json:"amount"`
	Currency       models.Currency `json:"currency"`
	IdempotencyKey string          `json:"-"`
}

// LedgerService runs deposits, withdrawals and transfers, each as one unit of work.
type LedgerService struct {
	store         repository.Store
	events        EventPublisher
	audit         Auditor
	log           *zap.Logger
	withdrawalMax models.Money
}

func NewLedgerService(store repository.Store, events EventPublisher, auditor Auditor, logger *zap.Logger, cfg LedgerConfig) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = NopPublisher{}
	}
	if auditor == nil {
		auditor = audit.NewAuditLogger(logger)
	}
	ceiling := cfg.WithdrawalMax
	if ceiling.IsZero() {
		ceiling = models.DefaultWithdrawalMaxAmount
	}
	return &LedgerService{
		store:         store,
		events:        events,
		audit:         auditor,
		log:           logger.Named("ledger"),
		withdrawalMax: ceiling,
	}
}

// WithdrawalMax reports the configured withdrawal ceiling.
func (s *LedgerService) WithdrawalMax() models.Money { return s.withdrawalMax }

// movement is one money-moving workflow: the transaction it records and the
// body that runs inside the unit of work.
type movement struct {
	want      *models.Transaction
	atmID     int64
	banknotes []models.BanknoteLine
	accounts  []int64
	apply    func(ctx context.Context, tx repository.Tx, op *operation) ([]*models.Account, *models.Transaction, error)
}

// Deposit credits cash received by an ATM to an account.
func (s *LedgerService) Deposit(ctx context.Context, req DepositRequest) (*models.Account, *models.Transaction, error) {
	req.Currency = models.NormalizeCurrency(string(req.Currency))
	op := s.start("ledger.Deposit",
		zap.Int64("account_id", req.AccountID),
		zap.Int64("atm_id", req.AtmID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", string(req.Currency)))

	key, err := parseIdempotencyKey(req.IdempotencyKey)
	want := &models.Transaction{
		ToAccountID:    models.Int64Ptr(req.AccountID),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Type:           models.TransactionDeposit,
		Status:         models.StatusPending,
		IdempotencyKey: key,
	}
	if err == nil {
		err = checkMovement("deposit", req.AccountID, req.AtmID, req.Amount, req.Currency)
	}
	if err != nil {
		return nil, nil, s.reject(op, want, err)
	}

	accounts, rec, err := s.execute(ctx, op, movement{
		want:      want,
		atmID:     req.AtmID,
		banknotes: req.Banknotes,
		accounts:  []int64{req.AccountID},
		apply: func(ctx context.Context, tx repository.Tx, op *operation) ([]*models.Account, *models.Transaction, error) {
			locked, err := tx.LockAccounts(ctx, req.AccountID)
			if err != nil {
				return nil, nil, err
			}
			account := locked[0]
			if err := matchCurrency(req.Currency, account); err != nil {
				return nil, nil, err
			}
			if err := validation.DepositAmount(req.Amount); err != nil {
				return nil, nil, err
			}
			if err := ReconcileDeposit(req.Banknotes, req.Amount); err != nil {
				return nil, nil, err
			}

			created, err := s.record(ctx, tx, op, want)
			if err != nil {
				return nil, nil, err
			}
			deposit := &models.Deposit{
				TransactionID: created.ID,
				AtmID:         req.AtmID,
				Currency:      req.Currency,
				TotalAmount:   req.Amount,
				Banknotes:     models.DepositBanknotesFrom(req.Banknotes),
			}
			if err := validation.DepositForCreate(deposit); err != nil {
				return nil, nil, err
			}
			if _, err := tx.CreateDeposit(ctx, deposit); err != nil {
				return nil, nil, err
			}

			account.Balance = account.Balance.Add(req.Amount)
			updated, err := persistBalance(ctx, tx, account)
			if err != nil {
				return nil, nil, err
			}
			op.advance(StateBalanced)

			rec, err := tx.UpdateTransactionStatus(ctx, created.ID, models.StatusCompleted)
			if err != nil {
				return nil, nil, err
			}
			return []*models.Account{updated}, rec, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return accounts[0], rec, nil
}

// Withdraw debits cash paid out by an ATM from an account.
func (s *LedgerService) Withdraw(ctx context.Context, req WithdrawalRequest) (*models.Account, *models.Transaction, error) {
	req.Currency = models.NormalizeCurrency(string(req.Currency))
	op := s.start("ledger.Withdraw",
		zap.Int64("account_id", req.AccountID),
		zap.Int64("atm_id", req.AtmID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", string(req.Currency)))

	key, err := parseIdempotencyKey(req.IdempotencyKey)
	want := &models.Transaction{
		FromAccountID:  models.Int64Ptr(req.AccountID),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Type:           models.TransactionWithdrawal,
		Status:         models.StatusPending,
		IdempotencyKey: key,
	}
	if err == nil {
		err = checkMovement("withdrawal", req.AccountID, req.AtmID, req.Amount, req.Currency)
	}
	if err != nil {
		return nil, nil, s.reject(op, want, err)
	}

	accounts, rec, err := s.execute(ctx, op, movement{
		want:      want,
		atmID:     req.AtmID,
		banknotes: req.Banknotes,
		accounts:  []int64{req.AccountID},
		apply: func(ctx context.Context, tx repository.Tx, op *operation) ([]*models.Account, *models.Transaction, error) {
			locked, err := tx.LockAccounts(ctx, req.AccountID)
			if err != nil {
				return nil, nil, err
			}
			account := locked[0]
			if err := matchCurrency(req.Currency, account); err != nil {
				return nil, nil, err
			}
			if err := sufficientFunds(account, req.Amount); err != nil {
				return nil, nil, err
			}
			if err := validation.WithdrawalAmount(req.Amount, s.withdrawalMax); err != nil {
				return nil, nil, err
			}
			if err := ReconcileWithdrawal(req.Banknotes, req.Amount); err != nil {
				return nil, nil, err
			}

			created, err := s.record(ctx, tx, op, want)
			if err != nil {
				return nil, nil, err
			}
			withdrawal := &models.Withdrawal{
				AccountID:     account.ID,
				TransactionID: created.ID,
				AtmID:         req.AtmID,
				Currency:      req.Currency,
				TotalAmount:   req.Amount,
				Banknotes:     models.WithdrawalBanknotesFrom(req.Banknotes),
			}
			if err := validation.WithdrawalForCreate(withdrawal, s.withdrawalMax); err != nil {
				return nil, nil, err
			}
			if _, err := tx.CreateWithdrawal(ctx, withdrawal); err != nil {
				return nil, nil, err
			}

			account.Balance = account.Balance.Sub(req.Amount)
			updated, err := persistBalance(ctx, tx, account)
			if err != nil {
				return nil, nil, err
			}
			op.advance(StateBalanced)

			rec, err := tx.UpdateTransactionStatus(ctx, created.ID, models.StatusCompleted)
			if err != nil {
				return nil, nil, err
			}
			return []*models.Account{updated}, rec, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return accounts[0], rec, nil
}

// Transfer moves money between two accounts of the same currency.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (*models.Account, *models.Account, *models.Transaction, error) {
	req.Currency = models.NormalizeCurrency(string(req.Currency))
	op := s.start("ledger.Transfer",
		zap.Int64("from_account_id", req.FromAccountID),
		zap.Int64("to_account_id", req.ToAccountID),
		zap.String("amount", req.Amount.String()),
		zap.String("currency", string(req.Currency)))

	key, err := parseIdempotencyKey(req.IdempotencyKey)
	want := &models.Transaction{
		FromAccountID:  models.Int64Ptr(req.FromAccountID),
		ToAccountID:    models.Int64Ptr(req.ToAccountID),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Type:           models.TransactionTransfer,
		Status:         models.StatusPending,
		IdempotencyKey: key,
	}
	if err == nil {
		err = checkTransfer(req)
	}
	if err != nil {
		return nil, nil, nil, s.reject(op, want, err)
	}

	accounts, rec, err := s.execute(ctx, op, movement{
		want:     want,
		accounts: []int64{req.FromAccountID, req.ToAccountID},
		apply: func(ctx context.Context, tx repository.Tx, op *operation) ([]*models.Account, *models.Transaction, error) {
			locked, err := tx.LockAccounts(ctx, req.FromAccountID, req.ToAccountID)
			if err != nil {
				return nil, nil, err
			}
			from, to := locked[0], locked[1]
			if err := matchCurrency(req.Currency, from, to); err != nil {
				return nil, nil, err
			}
			if err := sufficientFunds(from, req.Amount); err != nil {
				return nil, nil, err
			}

			created, err := s.record(ctx, tx, op, want)
			if err != nil {
				return nil, nil, err
			}

			from.Balance = from.Balance.Sub(req.Amount)
			to.Balance = to.Balance.Add(req.Amount)
			debited, err := persistBalance(ctx, tx, from)
			if err != nil {
				return nil, nil, err
			}
			credited, err := persistBalance(ctx, tx, to)
			if err != nil {
				return nil, nil, err
			}
			op.advance(StateBalanced)

			rec, err := tx.UpdateTransactionStatus(ctx, created.ID, models.StatusCompleted)
			if err != nil {
				return nil, nil, err
			}
			return []*models.Account{debited, credited}, rec, nil
		},
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return accounts[0], accounts[1], rec, nil
}

// execute runs m in one unit of work, or returns the stored outcome when the
// idempotency key was already used for the same movement.
func (s *LedgerService) execute(ctx context.Context, op *operation, m movement) ([]*models.Account, *models.Transaction, error) {
	if accounts, prior, err := s.replay(ctx, m); err != nil || prior != nil {
		if err != nil {
			return nil, nil, s.reject(op, m.want, err)
		}
		op.log.Info("idempotent replay", zap.Int64("transaction_id", prior.ID))
		return accounts, prior, nil
	}
	op.advance(StateValidated)

	var (
		accounts []*models.Account
		rec      *models.Transaction
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		accounts, rec, err = m.apply(ctx, tx, op)
		return err
	})
	if err != nil {
		// A concurrent request with the same key won the unique index.
		if errors.Is(err, ledgererr.ErrConflict) && m.want.IdempotencyKey != nil {
			if accounts, prior, rerr := s.replay(ctx, m); rerr == nil && prior != nil {
				op.log.Info("idempotent replay after conflict", zap.Int64("transaction_id", prior.ID))
				return accounts, prior, nil
			}
		}
		return nil, nil, s.reject(op, m.want, err)
	}

	op.finish(rec.ID)
	s.audit.RecordTransaction(rec)

	// The unit of work is committed; a lost event must not fail the caller.
	event := newLedgerEvent(rec, m.atmID, accounts...)
	if err := s.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		op.log.Warn("failed to publish ledger event", zap.Int64("transaction_id", rec.ID), zap.Error(err))
	}
	return accounts, rec, nil
}

func (s *LedgerService) replay(ctx context.Context, m movement) ([]*models.Account, *models.Transaction, error) {
	if m.want.IdempotencyKey == nil {
		return nil, nil, nil
	}
	prior, err := s.store.FindTransactionByIdempotencyKey(ctx, *m.want.IdempotencyKey)
	if errors.Is(err, ledgererr.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	same := sameMovement(prior, m.want)
	if same && m.atmID != 0 {
		if same, err = s.sameCash(ctx, prior, m); err != nil {
			return nil, nil, err
		}
	}
	if !same {
		return nil, nil, &ledgererr.Error{
			Kind: ledgererr.KindConflict, Entity: "transaction", Field: "idempotency_key",
			Msg: "idempotency key " + *m.want.IdempotencyKey + " was used for a different request",
		}
	}

	accounts := make([]*models.Account, 0, len(m.accounts))
	for _, id := range m.accounts {
		a, err := s.store.FindAccountByID(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, prior, nil
}

func (s *LedgerService) record(ctx context.Context, tx repository.Tx, op *operation, want *models.Transaction) (*models.Transaction, error) {
	pending := *want
	if err := validation.TransactionForCreate(&pending); err != nil {
		return nil, err
	}
	created, err := tx.CreateTransaction(ctx, &pending)
	if err != nil {
		return nil, err
	}
	op.advance(StateRecorded)
	return created, nil
}

// reject aborts op and audits the failure.
func (s *LedgerService) reject(op *operation, want *models.Transaction, err error) error {
	err = op.abort(err)
	var accountID, counterparty int64
	switch {
	case want.FromAccountID != nil:
		accountID = *want.FromAccountID
		if want.ToAccountID != nil {
			counterparty = *want.ToAccountID
		}
	case want.ToAccountID != nil:
		accountID = *want.ToAccountID
	}
	s.audit.RecordFailure(string(want.Type), accountID, counterparty, want.Amount, want.Currency, err)
	return err
}

// persistBalance re-verifies the locked balance right before writing it.
func persistBalance(ctx context.Context, tx repository.Tx, account *models.Account) (*models.Account, error) {
	if account.Balance.IsNegative() {
		return nil, &ledgererr.Error{
			Kind: ledgererr.KindInsufficientFunds, Entity: "account", Field: "balance",
			Msg: "balance of account would become " + account.Balance.String(),
		}
	}
	return tx.UpdateAccount(ctx, account)
}

func sufficientFunds(account *models.Account, amount models.Money) error {
	if account.Balance.LessThan(amount) {
		return &ledgererr.Error{
			Kind: ledgererr.KindInsufficientFunds, Entity: "account", Field: "balance",
			Msg: "balance " + account.Balance.String() + " is less than " + amount.String(),
		}
	}
	return nil
}

func matchCurrency(currency models.Currency, accounts ...*models.Account) error {
	for _, a := range accounts {
		if a.Currency != currency {
			return &ledgererr.Error{
				Kind: ledgererr.KindCurrencyMismatch, Entity: "account", Field: "currency",
				Msg: "operation currency " + string(currency) + " does not match account currency " + string(a.Currency),
			}
		}
	}
	return nil
}

// checkMovement runs the structural checks that need no storage.
func checkMovement(entity string, accountID, atmID int64, amount models.Money, currency models.Currency) error {
	if err := validation.PositiveID(entity, "account_id", accountID); err != nil {
		return err
	}
	if err := validation.PositiveID(entity, "atm_id", atmID); err != nil {
		return err
	}
	if err := validation.Currency(entity, "currency", currency); err != nil {
		return err
	}
	return validation.CanonicalAmount(entity, "amount", amount)
}

func checkTransfer(req TransferRequest) error {
	const entity = "transfer"
	if req.FromAccountID == req.ToAccountID {
		return ledgererr.Validation(entity, "to_account_id", ledgererr.ReasonSameAccount,
			"cannot transfer account %d to itself", req.FromAccountID)
	}
	if err := validation.PositiveID(entity, "from_account_id", req.FromAccountID); err != nil {
		return err
	}
	if err := validation.PositiveID(entity, "to_account_id", req.ToAccountID); err != nil {
		return err
	}
	if err := validation.Currency(entity, "currency", req.Currency); err != nil {
		return err
	}
	return validation.CanonicalAmount(entity, "amount", req.Amount)
}

func parseIdempotencyKey(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ledgererr.Validation("transaction", "idempotency_key", ledgererr.ReasonInvalidFormat,
			"idempotency key must be a UUID: %v", err)
	}
	key := id.String()
	return &key, nil
}

func sameMovement(prior, want *models.Transaction) bool {
	return prior.Type == want.Type &&
		sameRef(prior.FromAccountID, want.FromAccountID) &&
		sameRef(prior.ToAccountID, want.ToAccountID) &&
		prior.Amount.Equal(want.Amount) &&
		prior.Currency == want.Currency
}

// sameCash compares the ATM and banknote breakdown stored with prior against m.
func (s *LedgerService) sameCash(ctx context.Context, prior *models.Transaction, m movement) (bool, error) {
	var (
		atmID int64
		lines []models.BanknoteLine
	)
	switch prior.Type {
	case models.TransactionDeposit:
		d, err := s.store.FindDepositByTransactionID(ctx, prior.ID)
		if err != nil {
			return false, err
		}
		atmID = d.AtmID
		for _, b := range d.Banknotes {
			lines = append(lines, models.BanknoteLine{Denomination: b.Denomination, Quantity: b.Quantity})
		}
	case models.TransactionWithdrawal:
		w, err := s.store.FindWithdrawalByTransactionID(ctx, prior.ID)
		if err != nil {
			return false, err
		}
		atmID = w.AtmID
		for _, b := range w.Banknotes {
			lines = append(lines, models.BanknoteLine{Denomination: b.Denomination, Quantity: b.Quantity})
		}
	default:
		return true, nil
	}
	return atmID == m.atmID && sameBreakdown(lines, m.banknotes), nil
}

// sameBreakdown reports whether a and b hold the same notes per denomination,
// regardless of line order or how the notes were split across lines.
func sameBreakdown(a, b []models.BanknoteLine) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == len(b)
	}
	tally := make(map[string]int)
	for _, l := range a {
		tally[l.Denomination.String()] += l.Quantity
	}
	for _, l := range b {
		tally[l.Denomination.String()] -= l.Quantity
	}
	for _, n := range tally {
		if n != 0 {
			return false
		}
	}
	return true
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
