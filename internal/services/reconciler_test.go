package services

import (
	"testing"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name    string
		lines   []models.BanknoteLine
		claimed string
		minQty  int
		wantErr error
	}{
		{"empty list accepted", nil, "999.99", 1, nil},
		{"deposit breakdown matches", notes("100.00", 2, "50.00", 1, "20.00", 5), "350.00", 0, nil},
		{"withdrawal breakdown matches", notes("50.00", 2, "20.00", 2), "140.00", 1, nil},
		{"mismatch", notes("20.00", 3), "100.00", 0, ledgererr.ErrAmountMismatch},
		{"zero quantity allowed for deposits", notes("20.00", 0, "10.00", 1), "10.00", 0, nil},
		{"zero quantity rejected for withdrawals", notes("20.00", 0, "10.00", 1), "10.00", 1, ledgererr.ErrInvalidLineItem},
		{"negative quantity", notes("20.00", -1), "0.00", 0, ledgererr.ErrInvalidLineItem},
		{"zero denomination", notes("0.00", 2), "0.00", 0, ledgererr.ErrInvalidLineItem},
		{"negative denomination", notes("-5.00", 2), "-10.00", 0, ledgererr.ErrInvalidLineItem},
		{"scale differences are not mismatches", notes("0.5", 3), "1.50", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Reconcile(tt.lines, models.MustMoney(tt.claimed), tt.minQty)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReconcile_MismatchMessage(t *testing.T) {
	err := ReconcileDeposit(notes("20.00", 3), models.MustMoney("100.00"))
	assert.ErrorIs(t, err, ledgererr.ErrAmountMismatch)
	assert.Contains(t, err.Error(), "60.00")
	assert.Contains(t, err.Error(), "100.00")
}

func TestReconcile_LineIndexReported(t *testing.T) {
	err := ReconcileWithdrawal(notes("50.00", 2, "20.00", 0), models.MustMoney("100.00"))
	var le *ledgererr.Error
	assert.ErrorAs(t, err, &le)
	assert.Equal(t, "banknotes[1].quantity", le.Field)
}

func TestSumBanknotes(t *testing.T) {
	assert.Equal(t, "350.00", SumBanknotes(notes("100.00", 2, "50.00", 1, "20.00", 5)).String())
	assert.True(t, SumBanknotes(nil).IsZero())
}

func TestReconcile_DenominationIndexReported(t *testing.T) {
	err := ReconcileDeposit(notes("20.00", 1, "0.00", 2), models.MustMoney("20.00"))
	var le *ledgererr.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "banknotes[1].denomination", le.Field)
	assert.Equal(t, ledgererr.ReasonInvalidLineItem, le.Reason)

	again := ReconcileDeposit(notes("0.00", 2), models.MustMoney("0.00"))
	require.ErrorAs(t, again, &le)
	assert.Equal(t, "banknotes[0].denomination", le.Field)
}

func TestReconcile_RepeatedDenominations(t *testing.T) {
	assert.NoError(t, ReconcileDeposit(notes("20.00", 2, "20.00", 1), models.MustMoney("60.00")))
	assert.NoError(t, ReconcileWithdrawal(notes("20.00", 2, "20.00", 1), models.MustMoney("60.00")))
}
