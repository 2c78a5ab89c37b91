// Package ledgererr defines the typed failures every ledger operation reports.
//
// Callers match a failure category with errors.Is against the sentinels below
// and read the details (field, reason, retryability) with errors.As.
package ledgererr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the failure category.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientFunds
	KindAmountMismatch
	KindCurrencyMismatch
	KindLimitViolation
	KindPersistence
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindAmountMismatch:
		return "amount_mismatch"
	case KindCurrencyMismatch:
		return "currency_mismatch"
	case KindLimitViolation:
		return "limit_violation"
	case KindPersistence:
		return "persistence_failure"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Reason refines a Kind.
type Reason string

const (
	ReasonMissing         Reason = "missing"
	ReasonOutOfRange      Reason = "out_of_range"
	ReasonInvalidFormat   Reason = "invalid_format"
	ReasonUnsupported     Reason = "unsupported"
	ReasonPreassignedID   Reason = "preassigned_id"
	ReasonInvalidLineItem Reason = "invalid_line_item"
	ReasonSameAccount     Reason = "same_account"
	ReasonBelowMinimum    Reason = "below_minimum"
	ReasonAboveMaximum    Reason = "above_maximum"
	ReasonLockTimeout     Reason = "lock_timeout"
	ReasonNonZeroBalance  Reason = "non_zero_balance"
)

// Error is the single error type of the ledger.
type Error struct {
	Kind      Kind
	Op        string // operation, e.g. "ledger.Withdraw"
	Entity    string // e.g. "account", "deposit"
	Field     string
	Reason    Reason
	Retryable bool
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		b.WriteString(" ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	if e.Reason != "" {
		b.WriteString(" (")
		b.WriteString(string(e.Reason))
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error on Kind, and on Reason and Entity when the
// target sets them. This lets the package sentinels act as patterns.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}
	return true
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAccountNotFound   = &Error{Kind: KindNotFound, Entity: "account"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrAmountMismatch    = &Error{Kind: KindAmountMismatch}
	ErrCurrencyMismatch  = &Error{Kind: KindCurrencyMismatch}
	ErrLimitViolation    = &Error{Kind: KindLimitViolation}
	ErrBelowMinimum      = &Error{Kind: KindLimitViolation, Reason: ReasonBelowMinimum}
	ErrAboveMaximum      = &Error{Kind: KindLimitViolation, Reason: ReasonAboveMaximum}
	ErrInvalidLineItem   = &Error{Kind: KindValidation, Reason: ReasonInvalidLineItem}
	ErrSameAccount       = &Error{Kind: KindValidation, Reason: ReasonSameAccount}
	ErrPersistence       = &Error{Kind: KindPersistence}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Validation builds a validation failure for entity.field.
func Validation(entity, field string, reason Reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Entity: entity, Field: field, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports an absent entity.
func NotFound(entity string, id any) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, Msg: fmt.Sprintf("%s %v not found", entity, id)}
}

// Persistence wraps a storage fault.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// Retryable wraps a storage fault the caller may resubmit, such as a lock wait timeout.
func Retryable(op string, reason Reason, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Reason: reason, Retryable: true, Err: err}
}

// New builds an error of the given kind.
func New(kind Kind, reason Reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// WithOp stamps the operation name on a ledger error, leaving other errors as they are.
func WithOp(op string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		if le.Op == "" {
			cp := *le
			cp.Op = op
			return &cp
		}
		return err
	}
	return err
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller may safely resubmit.
func IsRetryable(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Retryable
}
