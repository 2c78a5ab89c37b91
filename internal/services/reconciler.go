package services

import (
	"errors"
	"fmt"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/validation"
)

// SumBanknotes returns sum(denomination x quantity) over lines.
func SumBanknotes(lines []models.BanknoteLine) models.Money {
	total := models.Zero
	for _, l := range lines {
		total = total.Add(l.Denomination.MulInt(int64(l.Quantity)))
	}
	return total
}

// Reconcile checks that a non-empty banknote breakdown sums exactly to claimed.
// An empty breakdown is accepted: itemizing cash is optional.
// Every line needs a positive denomination and a quantity of at least minQuantity.
func Reconcile(lines []models.BanknoteLine, claimed models.Money, minQuantity int) error {
	if len(lines) == 0 {
		return nil
	}
	for i, l := range lines {
		if err := validation.Denomination("banknote", l.Denomination); err != nil {
			var le *ledgererr.Error
			if !errors.As(err, &le) {
				return err
			}
			line := *le
			line.Field = fmt.Sprintf("banknotes[%d].denomination", i)
			return &line
		}
		if l.Quantity < minQuantity {
			return &ledgererr.Error{
				Kind:   ledgererr.KindValidation,
				Entity: "banknote",
				Field:  fmt.Sprintf("banknotes[%d].quantity", i),
				Reason: ledgererr.ReasonInvalidLineItem,
				Msg:    fmt.Sprintf("quantity %d is below %d", l.Quantity, minQuantity),
			}
		}
	}
	if sum := SumBanknotes(lines); !sum.Equal(claimed) {
		return ledgererr.New(ledgererr.KindAmountMismatch, "",
			"banknotes sum to %s but the claimed total is %s", sum, claimed)
	}
	return nil
}

// ReconcileDeposit allows zero-quantity lines.
func ReconcileDeposit(lines []models.BanknoteLine, claimed models.Money) error {
	return Reconcile(lines, claimed, 0)
}

// ReconcileWithdrawal requires every line to pay out at least one note.
func ReconcileWithdrawal(lines []models.BanknoteLine, claimed models.Money) error {
	return Reconcile(lines, claimed, 1)
}
