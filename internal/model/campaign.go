package model

import "time"

// Campaign statuses.
const (
	CampaignScheduled = "scheduled"
	CampaignActive    = "active"
	CampaignPaused    = "paused"
	CampaignCompleted = "completed"
)

type Campaign struct {
	ID         int        `db:"id" json:"id"`
	TeamID     int        `db:"team_id" json:"team_id"`
	Name       string     `db:"name" json:"name"`
	Status     string     `db:"status" json:"status"`
	ScoreMin   int        `db:"score_min" json:"score_min"`
	ScoreMax   int        `db:"score_max" json:"score_max"`
	StartsAt   time.Time  `db:"starts_at" json:"starts_at"`
	PausedAt   *time.Time `db:"paused_at" json:"paused_at,omitempty"`
	ResumedAt  *time.Time `db:"resumed_at" json:"resumed_at,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy *string    `db:"approved_by" json:"approved_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Approved reports whether the campaign has passed the approval gate.
// Activation and resume are refused without it.
func (c *Campaign) Approved() bool {
	return c.ApprovedAt != nil
}
