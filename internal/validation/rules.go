package validation

import (
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

// PositiveID requires a positive identity or reference.
func PositiveID(entity, field string, id int64) error {
	switch {
	case id == 0:
		return ledgererr.Validation(entity, field, ledgererr.ReasonMissing, "%s is required", field)
	case id < 0:
		return ledgererr.Validation(entity, field, ledgererr.ReasonOutOfRange, "%s must be positive, got %d", field, id)
	}
	return nil
}

// NewIdentity rejects an identity already assigned to an entity being created.
func NewIdentity(entity string, id int64) error {
	if id != 0 {
		return ledgererr.Validation(entity, "id", ledgererr.ReasonPreassignedID, "new %s must not carry an id, got %d", entity, id)
	}
	return nil
}

// Currency requires a non-empty code from the supported set.
func Currency(entity, field string, c models.Currency) error {
	if c == "" {
		return ledgererr.Validation(entity, field, ledgererr.ReasonMissing, "currency is required")
	}
	if !c.IsSupported() {
		return ledgererr.Validation(entity, field, ledgererr.ReasonUnsupported, "currency %q is not supported", string(c))
	}
	return nil
}

// CanonicalAmount requires amount > 0 expressed with at most two fractional digits.
func CanonicalAmount(entity, field string, amount models.Money) error {
	if !amount.IsPositive() {
		return ledgererr.Validation(entity, field, ledgererr.ReasonOutOfRange, "amount must be positive, got %s", amount)
	}
	if amount.Scale() > models.CanonicalScale {
		return ledgererr.Validation(entity, field, ledgererr.ReasonInvalidFormat,
			"amount %s has more than %d fractional digits", amount.Decimal().String(), models.CanonicalScale)
	}
	return nil
}

// DepositAmount applies the deposit minimum.
func DepositAmount(amount models.Money) error {
	if err := CanonicalAmount("deposit", "total_amount", amount); err != nil {
		return err
	}
	if amount.LessThan(models.DepositMinAmount) {
		return &ledgererr.Error{
			Kind: ledgererr.KindLimitViolation, Entity: "deposit", Field: "total_amount",
			Reason: ledgererr.ReasonBelowMinimum,
			Msg:    "deposit " + amount.String() + " is below the minimum " + models.DepositMinAmount.String(),
		}
	}
	return nil
}

// WithdrawalAmount applies the withdrawal minimum and ceiling.
// A zero ceiling falls back to models.DefaultWithdrawalMaxAmount.
func WithdrawalAmount(amount, ceiling models.Money) error {
	if err := CanonicalAmount("withdrawal", "total_amount", amount); err != nil {
		return err
	}
	if amount.LessThan(models.WithdrawalMinAmount) {
		return &ledgererr.Error{
			Kind: ledgererr.KindLimitViolation, Entity: "withdrawal", Field: "total_amount",
			Reason: ledgererr.ReasonBelowMinimum,
			Msg:    "withdrawal " + amount.String() + " is below the minimum " + models.WithdrawalMinAmount.String(),
		}
	}
	if ceiling.IsZero() {
		ceiling = models.DefaultWithdrawalMaxAmount
	}
	if amount.GreaterThan(ceiling) {
		return &ledgererr.Error{
			Kind: ledgererr.KindLimitViolation, Entity: "withdrawal", Field: "total_amount",
			Reason: ledgererr.ReasonAboveMaximum,
			Msg:    "withdrawal " + amount.String() + " exceeds the maximum " + ceiling.String(),
		}
	}
	return nil
}

// Denomination requires a positive banknote value at canonical scale.
func Denomination(entity string, d models.Money) error {
	if !d.IsPositive() || d.Scale() > models.CanonicalScale {
		return &ledgererr.Error{
			Kind: ledgererr.KindValidation, Entity: entity, Field: "denomination",
			Reason: ledgererr.ReasonInvalidLineItem,
			Msg:    "denomination must be a positive amount, got " + d.Decimal().String(),
		}
	}
	return nil
}
