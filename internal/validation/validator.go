// Package validation holds the structural and business-rule checks run before
// every ledger mutation. Checks are pure: they never touch storage.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

// Helper wraps validator/v10 with the ledger's custom tags and turns
// field errors into typed ledger errors.
type Helper struct {
	validator *validator.Validate
}

// NewHelper creates a helper with the "currency" tag registered.
func NewHelper() *Helper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return models.Currency(fl.Field().String()).IsSupported()
	})
	return &Helper{validator: v}
}

var defaultHelper = NewHelper()

// Default returns the shared helper.
func Default() *Helper { return defaultHelper }

// Validator exposes the underlying validator, e.g. for request DTOs.
func (h *Helper) Validator() *validator.Validate { return h.validator }

// Struct validates s and reports the first failing field as a ledger error
// attributed to entity.
func (h *Helper) Struct(entity string, s any) error {
	err := h.validator.Struct(s)
	if err == nil {
		return nil
	}
	return Translate(entity, err)
}

// Translate converts validator output into a *ledgererr.Error.
func Translate(entity string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ledgererr.Validation(entity, "", ledgererr.ReasonInvalidFormat, "%v", err)
	}
	fe := verrs[0]
	msg := fmt.Sprintf("failed on '%s' tag", fe.Tag())
	if len(verrs) > 1 {
		others := make([]string, 0, len(verrs)-1)
		for _, e := range verrs[1:] {
			others = append(others, e.Field())
		}
		msg += fmt.Sprintf(" (also: %s)", strings.Join(others, ", "))
	}
	return &ledgererr.Error{
		Kind:   ledgererr.KindValidation,
		Entity: entity,
		Field:  fe.Field(),
		Reason: reasonForTag(fe.Tag()),
		Msg:    msg,
	}
}

// Details flattens validator output into field -> message, as returned to HTTP clients.
func Details(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", e.Tag())
	}
	return out
}

func reasonForTag(tag string) ledgererr.Reason {
	switch tag {
	case "required", "required_if", "required_with":
		return ledgererr.ReasonMissing
	case "currency", "oneof":
		return ledgererr.ReasonUnsupported
	case "gt", "gte", "lt", "lte", "min", "max":
		return ledgererr.ReasonOutOfRange
	default:
		return ledgererr.ReasonInvalidFormat
	}
}
