// Package suppression holds the consent check performed before any send.
package suppression

import (
	"context"
	"database/sql"

	"github.com/cadencehq/outreach-backend/internal/channel"
)

// Decision is the gate's verdict for one (lead, channel) pair.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate answers whether a lead may be contacted on a channel.
type Gate interface {
	CanContact(ctx context.Context, leadID int, ch channel.Channel) (Decision, error)
}

// OptOutGate denies contact when the lead has an opt-out row for the channel.
type OptOutGate struct {
	DB *sql.DB
}

func (g *OptOutGate) CanContact(ctx context.Context, leadID int, ch channel.Channel) (Decision, error) {
	query := `
        SELECT reason FROM opt_outs
        WHERE lead_id = $1 AND channel = $2
        ORDER BY created_at DESC
        LIMIT 1
    `
	var reason string
	err := g.DB.QueryRowContext(ctx, query, leadID, string(ch)).Scan(&reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return Decision{Allowed: true}, nil
		}
		return Decision{}, err
	}
	if reason == "" {
		reason = "lead opted out"
	}
	return Decision{Allowed: false, Reason: reason}, nil
}

// AllowAll is a gate that never blocks. Useful in tests and local setups
// without compliance data.
type AllowAll struct{}

func (AllowAll) CanContact(ctx context.Context, leadID int, ch channel.Channel) (Decision, error) {
	return Decision{Allowed: true}, nil
}
