package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruralpay/atmledger/internal/models"
)

func TestRedisEventPublisher_Publish(t *testing.T) {
	client, mock := redismock.NewClientMock()
	publisher := NewRedisEventPublisher(client, "")

	event := LedgerEvent{
		EventID:       "evt-1",
		Type:          models.TransactionDeposit,
		TransactionID: 9,
		ToAccountID:   models.Int64Ptr(1),
		Amount:        models.MustMoney("350.00"),
		Currency:      models.USD,
		AtmID:         3,
		Balances:      map[int64]models.Money{1: models.MustMoney("850.00")},
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	t.Run("pushes to the default queue", func(t *testing.T) {
		mock.ExpectRPush(DefaultEventsQueue, data).SetVal(1)

		assert.NoError(t, publisher.Publish(context.Background(), event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces redis errors", func(t *testing.T) {
		mock.ExpectRPush(DefaultEventsQueue, data).SetErr(errors.New("connection refused"))

		err := publisher.Publish(context.Background(), event)
		assert.ErrorContains(t, err, "evt-1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNewLedgerEvent(t *testing.T) {
	tx := &models.Transaction{
		ID: 5, FromAccountID: models.Int64Ptr(1), ToAccountID: models.Int64Ptr(2),
		Amount: models.MustMoney("50.00"), Currency: models.USD, Type: models.TransactionTransfer,
	}
	e := newLedgerEvent(tx, 0,
		&models.Account{ID: 1, Balance: models.MustMoney("450.00")},
		&models.Account{ID: 2, Balance: models.MustMoney("1050.00")})

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, "450.00", e.Balances[1].String())
	assert.Equal(t, "1050.00", e.Balances[2].String())

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"amount":"50.00"`)
	assert.NotContains(t, string(raw), "atm_id")
}
