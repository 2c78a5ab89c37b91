package ledgererr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	t.Run("kind match", func(t *testing.T) {
		err := New(KindInsufficientFunds, "", "balance 50.00 below 100.00")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("reason narrows the match", func(t *testing.T) {
		err := New(KindLimitViolation, ReasonBelowMinimum, "3.00 below 5.00")
		assert.ErrorIs(t, err, ErrLimitViolation)
		assert.ErrorIs(t, err, ErrBelowMinimum)
		assert.NotErrorIs(t, err, ErrAboveMaximum)
	})

	t.Run("entity narrows the match", func(t *testing.T) {
		err := NotFound("account", 7)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NotErrorIs(t, NotFound("transaction", 7), ErrAccountNotFound)
	})

	t.Run("through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("deposit: %w", Validation("deposit", "atm_id", ReasonMissing, "required"))
		assert.ErrorIs(t, err, ErrValidation)

		var le *Error
		assert.True(t, errors.As(err, &le))
		assert.Equal(t, "atm_id", le.Field)
		assert.Equal(t, ReasonMissing, le.Reason)
	})
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindValidation, Op: "ledger.Deposit", Entity: "deposit", Field: "currency", Reason: ReasonUnsupported, Msg: "JPY"}
	assert.Equal(t, "ledger.Deposit: validation_error deposit.currency (unsupported): JPY", err.Error())

	wrapped := Persistence("postgres.CreateDeposit", errors.New("connection reset"))
	assert.Equal(t, "postgres.CreateDeposit: persistence_failure: connection reset", wrapped.Error())
}

func TestWithOp(t *testing.T) {
	base := New(KindConflict, "", "duplicate")
	stamped := WithOp("ledger.Transfer", base)

	var le *Error
	assert.True(t, errors.As(stamped, &le))
	assert.Equal(t, "ledger.Transfer", le.Op)
	assert.Empty(t, base.Op, "original must not be mutated")

	foreign := errors.New("boom")
	assert.Same(t, foreign, WithOp("x", foreign))
}

func TestKindOfAndRetryable(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindPersistence, KindOf(Persistence("op", errors.New("x"))))

	assert.False(t, IsRetryable(Persistence("op", errors.New("x"))))
	assert.True(t, IsRetryable(Retryable("op", ReasonLockTimeout, errors.New("lock timeout"))))
}
