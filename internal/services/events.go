package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/ruralpay/atmledger/internal/models"
)

// DefaultEventsQueue is the Redis list committed ledger events are pushed to.
const DefaultEventsQueue = "ledger_events"

// LedgerEvent describes one committed movement for downstream consumers
// such as settlement or notifications.
type LedgerEvent struct {
	EventID       string                 `json:"event_id"`
	Type          models.TransactionType `json:"type"`
	TransactionID int64                  `json:"transaction_id"`
	FromAccountID *int64                 `json:"from_account_id,omitempty"`
	ToAccountID   *int64                 `json:"to_account_id,omitempty"`
	Amount        models.Money           `json:"amount"`
	Currency      models.Currency        `json:"currency"`
	AtmID         int64                  `json:"atm_id,omitempty"`
	Balances      map[int64]models.Money `json:"balances"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

func newLedgerEvent(tx *models.Transaction, atmID int64, accounts ...*models.Account) LedgerEvent {
	e := LedgerEvent{
		EventID:       uuid.NewString(),
		Type:          tx.Type,
		TransactionID: tx.ID,
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		AtmID:         atmID,
		Balances:      make(map[int64]models.Money, len(accounts)),
		OccurredAt:    tx.ProcessedAt,
	}
	for _, a := range accounts {
		e.Balances[a.ID] = a.Balance
	}
	return e
}

// EventPublisher receives every committed ledger event.
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// RedisEventPublisher appends events to a Redis list.
type RedisEventPublisher struct {
	client redis.Cmdable
	queue  string
}

func NewRedisEventPublisher(client redis.Cmdable, queue string) *RedisEventPublisher {
	if queue == "" {
		queue = DefaultEventsQueue
	}
	return &RedisEventPublisher{client: client, queue: queue}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("push ledger event %s: %w", event.EventID, err)
	}
	return nil
}

// NopPublisher drops every event. Used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }
