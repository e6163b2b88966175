package model

import "time"

// LeadProgress statuses.
const (
	ProgressActive    = "active"
	ProgressCompleted = "completed"

	SequencePending   = "pending"
	SequenceCompleted = "completed"
)

// LeadProgress is the per-lead cursor into a campaign's sequence. One row per
// campaign-lead pair; only the executor mutates it after enrollment, and it is
// never deleted so the cadence history stays auditable.
type LeadProgress struct {
	CampaignID              int        `db:"campaign_id" json:"campaign_id"`
	LeadID                  int        `db:"lead_id" json:"lead_id"`
	CurrentSequencePosition int        `db:"current_sequence_position" json:"current_sequence_position"`
	CurrentSequenceStatus   string     `db:"current_sequence_status" json:"current_sequence_status"`
	NextSequenceRunAt       *time.Time `db:"next_sequence_run_at" json:"next_sequence_run_at,omitempty"`
	LastSequenceExecutedAt  *time.Time `db:"last_sequence_executed_at" json:"last_sequence_executed_at,omitempty"`
	Status                  string     `db:"status" json:"status"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
