package model

import (
	"time"

	"github.com/cadencehq/outreach-backend/internal/channel"
)

// SequenceStep is one ordinal touch in a campaign's cadence. Positions are
// 1-based and gapless per campaign; the executor relies on position+1 either
// existing or the lead being done.
type SequenceStep struct {
	ID         int             `db:"id" json:"id"`
	CampaignID int             `db:"campaign_id" json:"campaign_id"`
	Position   int             `db:"position" json:"position"`
	Channel    channel.Channel `db:"channel" json:"channel"`
	Subject    string          `db:"subject" json:"subject"`
	Content    string          `db:"content" json:"content"`
	DelayDays  int             `db:"delay_days" json:"delay_days"`
	DelayHours int             `db:"delay_hours" json:"delay_hours"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Delay is the wait after the previous step before this step is due.
func (s *SequenceStep) Delay() time.Duration {
	return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}
