package services

import (
	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/ledgererr"
)

// OperationState is the progress of one deposit, withdrawal or transfer.
type OperationState string

const (
	StateInitiated OperationState = "INITIATED"
	StateValidated OperationState = "VALIDATED"
	StateRecorded  OperationState = "RECORDED"
	StateBalanced  OperationState = "BALANCED"
	StateFinalized OperationState = "FINALIZED"
	StateAborted   OperationState = "ABORTED"
)

type operation struct {
	name  string
	state OperationState
	log   *zap.Logger
}

func (s *LedgerService) start(name string, fields ...zap.Field) *operation {
	op := &operation{
		name:  name,
		state: StateInitiated,
		log:   s.log.With(append(fields, zap.String("operation", name))...),
	}
	op.log.Debug("operation initiated")
	return op
}

func (o *operation) advance(next OperationState) {
	o.log.Debug("state transition", zap.String("from", string(o.state)), zap.String("to", string(next)))
	o.state = next
}

func (o *operation) finish(transactionID int64) {
	o.advance(StateFinalized)
	o.log.Info("operation finalized", zap.Int64("transaction_id", transactionID))
}

// abort stamps err with the operation name and logs the state it stopped in.
func (o *operation) abort(err error) error {
	err = ledgererr.WithOp(o.name, err)
	o.log.Warn("operation aborted",
		zap.String("state", string(o.state)),
		zap.String("error_kind", ledgererr.KindOf(err).String()),
		zap.Bool("retryable", ledgererr.IsRetryable(err)),
		zap.Error(err))
	o.state = StateAborted
	return err
}
