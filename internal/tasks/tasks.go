package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeStaleCheck re-examines a pending transaction after its blockhash
	// has had time to expire, failing it if the chain no longer accepts it.
	TypeStaleCheck = "tx:stale_check"

	QueueDefault = "default"
)

type StaleCheckPayload struct {
	TransactionID uuid.UUID `json:"transaction_id"`
}

func NewStaleCheckTask(transactionID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(StaleCheckPayload{TransactionID: transactionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeStaleCheck, payload), nil
}
