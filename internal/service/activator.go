package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cadencehq/outreach-backend/internal/logging"
)

// ActivatorStore is the one store operation the activator needs.
type ActivatorStore interface {
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
}

// CampaignActivator flips scheduled campaigns to active once their start time
// arrives. The approval gate lives in the store query: campaigns without
// approved_at stay scheduled no matter how far past starts_at they are.
type CampaignActivator struct {
	Campaigns ActivatorStore
	Now       func() time.Time

	logger zerolog.Logger
}

func NewCampaignActivator(campaigns ActivatorStore) *CampaignActivator {
	return &CampaignActivator{
		Campaigns: campaigns,
		Now:       time.Now,
		logger:    logging.Component("activator"),
	}
}

// Tick performs one bulk idempotent activation pass.
func (a *CampaignActivator) Tick(ctx context.Context) error {
	n, err := a.Campaigns.ActivateDue(ctx, a.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Info().Int64("activated", n).Msg("campaigns activated")
	}
	return nil
}
