package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity rebuilds party balances from the ledger.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskInventoryRevaluation recomputes position values.
	TaskInventoryRevaluation = "inventory:revaluation"
)

// LedgerIntegrityPayload scopes an integrity run. Zero PartyID checks every
// party.
type LedgerIntegrityPayload struct {
	PartyID      int64     `json:"party_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs an Asynq task for the ledger integrity check.
func NewLedgerIntegrityTask(payload LedgerIntegrityPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// InventoryRevaluationPayload carries scheduling metadata. Tolerance is a
// decimal string; empty uses the job default.
type InventoryRevaluationPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	Tolerance    string    `json:"tolerance,omitempty"`
}

// NewInventoryRevaluationTask constructs an Asynq task for inventory revaluation.
func NewInventoryRevaluationTask(payload InventoryRevaluationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryRevaluation, body, asynq.Queue(QueueDefault)), nil
}
