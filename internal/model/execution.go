package model

import "time"

// Execution statuses.
const (
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
	ExecutionBlocked   = "blocked"
)

// Execution is one send attempt. Append-only: rows are never mutated after
// insert, making the table the ground truth for "did we already try this step".
type Execution struct {
	ID             int       `db:"id" json:"id"`
	CampaignID     int       `db:"campaign_id" json:"campaign_id"`
	SequenceStepID int       `db:"sequence_step_id" json:"sequence_step_id"`
	LeadID         int       `db:"lead_id" json:"lead_id"`
	Status         string    `db:"status" json:"status"`
	FailedReason   string    `db:"failed_reason,omitempty" json:"failed_reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
