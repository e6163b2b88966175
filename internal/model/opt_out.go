package model

import (
	"time"

	"github.com/cadencehq/outreach-backend/internal/channel"
)

// OptOut records a lead's refusal of a channel. Backs the suppression gate.
type OptOut struct {
	ID        int             `db:"id" json:"id"`
	LeadID    int             `db:"lead_id" json:"lead_id"`
	Channel   channel.Channel `db:"channel" json:"channel"`
	Reason    string          `db:"reason" json:"reason"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
