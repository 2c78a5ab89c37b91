package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Arithmetic(t *testing.T) {
	balance := MustMoney("500.00")

	t.Run("add and subtract stay exact", func(t *testing.T) {
		got := balance.Add(MustMoney("350.00")).Sub(MustMoney("140.00"))
		assert.True(t, got.Equal(MustMoney("710")))
		assert.Equal(t, "710.00", got.String())
	})

	t.Run("no float drift", func(t *testing.T) {
		sum := Zero
		for i := 0; i < 10; i++ {
			sum = sum.Add(MustMoney("0.10"))
		}
		assert.True(t, sum.Equal(MustMoney("1.00")))
	})

	t.Run("multiply by quantity", func(t *testing.T) {
		assert.Equal(t, "200.00", MustMoney("100.00").MulInt(2).String())
		assert.True(t, MustMoney("20.00").MulInt(0).IsZero())
	})

	t.Run("compare", func(t *testing.T) {
		assert.Equal(t, -1, MustMoney("50.00").Cmp(MustMoney("100.00")))
		assert.True(t, MustMoney("3.00").LessThan(WithdrawalMinAmount))
		assert.True(t, MustMoney("10000.01").GreaterThan(DefaultWithdrawalMaxAmount))
		assert.True(t, MustMoney("-1").IsNegative())
		assert.True(t, MustMoney("0.01").IsPositive())
	})
}

func TestMoney_Scale(t *testing.T) {
	cases := map[string]int{
		"100":     0,
		"100.00":  0,
		"10.50":   1,
		"10.05":   2,
		"10.005":  3,
		"-4.25":   2,
		"0.00001": 5,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, MustMoney(in).Scale())
		})
	}
}

func TestMoney_JSON(t *testing.T) {
	var payload struct {
		Amount Money `json:"amount"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"amount":"350.00"}`), &payload))
	assert.Equal(t, "350.00", payload.Amount.String())

	require.NoError(t, json.Unmarshal([]byte(`{"amount":12.5}`), &payload))
	assert.Equal(t, "12.50", payload.Amount.String())

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc"}`), &payload))

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.50"}`, string(out))
}

func TestMoney_SQL(t *testing.T) {
	var m Money

	require.NoError(t, m.Scan([]byte("850.00")))
	assert.Equal(t, "850.00", m.String())

	require.NoError(t, m.Scan("42.10"))
	assert.Equal(t, "42.10", m.String())

	require.NoError(t, m.Scan(int64(7)))
	assert.Equal(t, "7.00", m.String())

	assert.Error(t, m.Scan(nil))
	assert.Error(t, m.Scan(true))

	v, err := MustMoney("1.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "1.50", v)
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, USD, NormalizeCurrency(" usd "))
	assert.True(t, GEL.IsSupported())
	assert.False(t, Currency("JPY").IsSupported())
	assert.Len(t, SupportedCurrencies(), 4)
}
