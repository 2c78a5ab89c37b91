// Package audit writes one structured record per finished ledger operation.
package audit

import (
	"time"

	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
)

const (
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusRolledBack = "ROLLED_BACK"
)

type Event struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventType     string          `json:"event_type"`
	TransactionID int64           `json:"transaction_id,omitempty"`
	AccountID     int64           `json:"account_id,omitempty"`
	Counterparty  int64           `json:"counterparty_id,omitempty"`
	Amount        models.Money    `json:"amount"`
	Currency      models.Currency `json:"currency,omitempty"`
	Status        string          `json:"status"`
	ErrorKind     string          `json:"error_kind,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// StatusFor maps an operation outcome to its audit status. Storage faults
// abort the unit of work, every other failure is a rejected request.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return StatusCompleted
	case ledgererr.KindOf(err) == ledgererr.KindPersistence:
		return StatusRolledBack
	default:
		return StatusFailed
	}
}

type AuditLogger struct {
	log *zap.Logger
	now func() time.Time
}

func NewAuditLogger(log *zap.Logger) *AuditLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogger{log: log.Named("audit"), now: time.Now}
}

// Record writes e. A zero Timestamp is stamped with the current time.
func (a *AuditLogger) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = a.now().UTC()
	}
	fields := []zap.Field{
		zap.Time("timestamp", e.Timestamp),
		zap.String("event_type", e.EventType),
		zap.String("status", e.Status),
		zap.String("amount", e.Amount.String()),
	}
	if e.TransactionID != 0 {
		fields = append(fields, zap.Int64("transaction_id", e.TransactionID))
	}
	if e.AccountID != 0 {
		fields = append(fields, zap.Int64("account_id", e.AccountID))
	}
	if e.Counterparty != 0 {
		fields = append(fields, zap.Int64("counterparty_id", e.Counterparty))
	}
	if e.Currency != "" {
		fields = append(fields, zap.String("currency", string(e.Currency)))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error_kind", e.ErrorKind), zap.String("error", e.Error))
	}

	if e.Status == StatusCompleted {
		a.log.Info("AUDIT", fields...)
		return
	}
	a.log.Warn("AUDIT", fields...)
}

// RecordTransaction audits a committed transaction.
func (a *AuditLogger) RecordTransaction(tx *models.Transaction) {
	e := Event{
		EventType:     string(tx.Type),
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		Status:        StatusCompleted,
	}
	switch {
	case tx.FromAccountID != nil:
		e.AccountID = *tx.FromAccountID
		if tx.ToAccountID != nil {
			e.Counterparty = *tx.ToAccountID
		}
	case tx.ToAccountID != nil:
		e.AccountID = *tx.ToAccountID
	}
	a.Record(e)
}

// RecordFailure audits an operation that did not commit.
func (a *AuditLogger) RecordFailure(eventType string, accountID, counterparty int64, amount models.Money, currency models.Currency, err error) {
	a.Record(Event{
		EventType:    eventType,
		AccountID:    accountID,
		Counterparty: counterparty,
		Amount:       amount,
		Currency:     currency,
		Status:       StatusFor(err),
		ErrorKind:    ledgererr.KindOf(err).String(),
		Error:        err.Error(),
	})
}
