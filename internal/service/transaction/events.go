package transaction

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/adapter/queue"
)

const (
	SubjectTransactionCreated    = "transaction.created"
	SubjectTransactionCalibrated = "transaction.calibrated"
	SubjectCredentialVerified    = "transaction.credential_verified"
	SubjectItemAdded             = "transaction.item_added"
	SubjectTransactionFinalized  = "billing.transaction.finalized"
)

// Event is the envelope published for every lifecycle change.
type Event struct {
	EventID       string      `json:"event_id"`
	EventType     string      `json:"event_type"`
	TransactionID string      `json:"transaction_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Data          interface{} `json:"data,omitempty"`
}

// publishEvent never fails the caller; a lost event is only logged.
func publishEvent(mq queue.MessageQueue, log *zap.Logger, subject, txID string, data interface{}) {
	if mq == nil {
		return
	}
	payload, err := json.Marshal(Event{
		EventID:       uuid.New().String(),
		EventType:     subject,
		TransactionID: txID,
		OccurredAt:    time.Now().UTC(),
		Data:          data,
	})
	if err != nil {
		log.Warn("Failed to encode event", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := mq.Publish(subject, payload); err != nil {
		log.Warn("Failed to publish event",
			zap.String("subject", subject),
			zap.String("transaction_id", txID),
			zap.Error(err),
		)
	}
}
