package validation

import (
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

func missing(entity string) error {
	return ledgererr.Validation(entity, "", ledgererr.ReasonMissing, "%s is nil", entity)
}

// AccountForCreate checks a new account before it is stored.
func AccountForCreate(a *models.Account) error {
	if a == nil {
		return missing("account")
	}
	if err := NewIdentity("account", a.ID); err != nil {
		return err
	}
	return accountFields(a)
}

// AccountForUpdate checks an existing account before an administrative update.
func AccountForUpdate(a *models.Account) error {
	if a == nil {
		return missing("account")
	}
	if err := PositiveID("account", "id", a.ID); err != nil {
		return err
	}
	return accountFields(a)
}

func accountFields(a *models.Account) error {
	if err := defaultHelper.Struct("account", a); err != nil {
		return err
	}
	if a.Balance.IsNegative() {
		return ledgererr.Validation("account", "balance", ledgererr.ReasonOutOfRange, "balance must not be negative, got %s", a.Balance)
	}
	if a.Balance.Scale() > models.CanonicalScale {
		return ledgererr.Validation("account", "balance", ledgererr.ReasonInvalidFormat, "balance %s is not at canonical scale", a.Balance.Decimal().String())
	}
	return nil
}

// TransactionForCreate checks a new transaction record.
func TransactionForCreate(t *models.Transaction) error {
	if t == nil {
		return missing("transaction")
	}
	if err := NewIdentity("transaction", t.ID); err != nil {
		return err
	}
	return transactionFields(t)
}

// TransactionForUpdate checks a transaction record being rewritten.
func TransactionForUpdate(t *models.Transaction) error {
	if t == nil {
		return missing("transaction")
	}
	if err := PositiveID("transaction", "id", t.ID); err != nil {
		return err
	}
	return transactionFields(t)
}

func transactionFields(t *models.Transaction) error {
	if err := defaultHelper.Struct("transaction", t); err != nil {
		return err
	}
	if err := CanonicalAmount("transaction", "amount", t.Amount); err != nil {
		return err
	}
	return AccountReferences(t)
}

// AccountReferences enforces the account shape each transaction type requires.
func AccountReferences(t *models.Transaction) error {
	const entity = "transaction"
	from, to := t.FromAccountID, t.ToAccountID
	unexpected := func(field string) error {
		return ledgererr.Validation(entity, field, ledgererr.ReasonInvalidFormat, "%s must be unset for %s", field, t.Type)
	}
	required := func(field string) error {
		return ledgererr.Validation(entity, field, ledgererr.ReasonMissing, "%s is required for %s", field, t.Type)
	}

	switch t.Type {
	case models.TransactionDeposit:
		if to == nil {
			return required("to_account_id")
		}
		if from != nil {
			return unexpected("from_account_id")
		}
		return PositiveID(entity, "to_account_id", *to)
	case models.TransactionWithdrawal:
		if from == nil {
			return required("from_account_id")
		}
		if to != nil {
			return unexpected("to_account_id")
		}
		return PositiveID(entity, "from_account_id", *from)
	case models.TransactionTransfer:
		if from == nil {
			return required("from_account_id")
		}
		if to == nil {
			return required("to_account_id")
		}
		if err := PositiveID(entity, "from_account_id", *from); err != nil {
			return err
		}
		if err := PositiveID(entity, "to_account_id", *to); err != nil {
			return err
		}
		if *from == *to {
			return ledgererr.Validation(entity, "to_account_id", ledgererr.ReasonSameAccount, "cannot transfer account %d to itself", *from)
		}
		return nil
	default:
		return ledgererr.Validation(entity, "type", ledgererr.ReasonUnsupported, "unknown transaction type %q", string(t.Type))
	}
}

// DepositForCreate checks a new deposit detail row and its line items.
func DepositForCreate(d *models.Deposit) error {
	if d == nil {
		return missing("deposit")
	}
	if err := NewIdentity("deposit", d.ID); err != nil {
		return err
	}
	return depositFields(d)
}

// DepositForUpdate checks a deposit detail row being rewritten.
func DepositForUpdate(d *models.Deposit) error {
	if d == nil {
		return missing("deposit")
	}
	if err := PositiveID("deposit", "id", d.ID); err != nil {
		return err
	}
	return depositFields(d)
}

func depositFields(d *models.Deposit) error {
	if err := defaultHelper.Struct("deposit", d); err != nil {
		return err
	}
	if err := DepositAmount(d.TotalAmount); err != nil {
		return err
	}
	for i := range d.Banknotes {
		if err := depositLine(&d.Banknotes[i]); err != nil {
			return err
		}
	}
	return nil
}

// WithdrawalForCreate checks a new withdrawal detail row against the ceiling.
func WithdrawalForCreate(w *models.Withdrawal, ceiling models.Money) error {
	if w == nil {
		return missing("withdrawal")
	}
	if err := NewIdentity("withdrawal", w.ID); err != nil {
		return err
	}
	return withdrawalFields(w, ceiling)
}

// WithdrawalForUpdate checks a withdrawal detail row being rewritten.
func WithdrawalForUpdate(w *models.Withdrawal, ceiling models.Money) error {
	if w == nil {
		return missing("withdrawal")
	}
	if err := PositiveID("withdrawal", "id", w.ID); err != nil {
		return err
	}
	return withdrawalFields(w, ceiling)
}

func withdrawalFields(w *models.Withdrawal, ceiling models.Money) error {
	if err := defaultHelper.Struct("withdrawal", w); err != nil {
		return err
	}
	if err := WithdrawalAmount(w.TotalAmount, ceiling); err != nil {
		return err
	}
	for i := range w.Banknotes {
		if err := withdrawalLine(&w.Banknotes[i]); err != nil {
			return err
		}
	}
	return nil
}

// DepositBanknoteForCreate checks a line item added to an existing deposit.
func DepositBanknoteForCreate(b *models.DepositBanknote) error {
	if b == nil {
		return missing("deposit_banknote")
	}
	if err := NewIdentity("deposit_banknote", b.ID); err != nil {
		return err
	}
	if err := PositiveID("deposit_banknote", "deposit_id", b.DepositID); err != nil {
		return err
	}
	return depositLine(b)
}

// DepositBanknoteForUpdate checks a stored deposit line item being rewritten.
func DepositBanknoteForUpdate(b *models.DepositBanknote) error {
	if b == nil {
		return missing("deposit_banknote")
	}
	if err := PositiveID("deposit_banknote", "id", b.ID); err != nil {
		return err
	}
	if err := PositiveID("deposit_banknote", "deposit_id", b.DepositID); err != nil {
		return err
	}
	return depositLine(b)
}

// WithdrawalBanknoteForCreate checks a line item added to an existing withdrawal.
func WithdrawalBanknoteForCreate(b *models.WithdrawalBanknote) error {
	if b == nil {
		return missing("withdrawal_banknote")
	}
	if err := NewIdentity("withdrawal_banknote", b.ID); err != nil {
		return err
	}
	if err := PositiveID("withdrawal_banknote", "withdrawal_id", b.WithdrawalID); err != nil {
		return err
	}
	return withdrawalLine(b)
}

// WithdrawalBanknoteForUpdate checks a stored withdrawal line item being rewritten.
func WithdrawalBanknoteForUpdate(b *models.WithdrawalBanknote) error {
	if b == nil {
		return missing("withdrawal_banknote")
	}
	if err := PositiveID("withdrawal_banknote", "id", b.ID); err != nil {
		return err
	}
	if err := PositiveID("withdrawal_banknote", "withdrawal_id", b.WithdrawalID); err != nil {
		return err
	}
	return withdrawalLine(b)
}

func depositLine(b *models.DepositBanknote) error {
	if err := Denomination("deposit_banknote", b.Denomination); err != nil {
		return err
	}
	if b.Quantity < 0 {
		return &ledgererr.Error{
			Kind: ledgererr.KindValidation, Entity: "deposit_banknote", Field: "quantity",
			Reason: ledgererr.ReasonInvalidLineItem, Msg: "quantity must not be negative",
		}
	}
	return nil
}

func withdrawalLine(b *models.WithdrawalBanknote) error {
	if err := Denomination("withdrawal_banknote", b.Denomination); err != nil {
		return err
	}
	if b.Quantity <= 0 {
		return &ledgererr.Error{
			Kind: ledgererr.KindValidation, Entity: "withdrawal_banknote", Field: "quantity",
			Reason: ledgererr.ReasonInvalidLineItem, Msg: "quantity must be positive",
		}
	}
	return nil
}
