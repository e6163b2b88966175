package repository

import (
	"context"
	"database/sql"

	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/model"
)

type SequenceStepRepositoryInterface interface {
	FindByCampaignAndPosition(ctx context.Context, campaignID, position int) (*model.SequenceStep, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]*model.SequenceStep, error)
}

/// SequenceStepRepository is read-only: steps are written as part of campaign
// creation and the executor never edits them.
type SequenceStepRepository struct {
	DB *sql.DB
}

const stepColumns = `id, campaign_id, position, channel, subject, content, delay_days, delay_hours, created_at`

func scanStep(row interface{ Scan(...any) error }) (*model.SequenceStep, error) {
	var s model.SequenceStep
	var ch string
	err := row.Scan(
		&s.ID, &s.CampaignID, &s.Position, &ch, &s.Subject, &s.Content,
		&s.DelayDays, &s.DelayHours, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Channel = channel.Channel(ch)
	return &s, nil
}

// FindByCampaignAndPosition returns nil, nil when no step exists at that
// position.
func (r *SequenceStepRepository) FindByCampaignAndPosition(ctx context.Context, campaignID, position int) (*model.SequenceStep, error) {
	query := `SELECT ` + stepColumns + ` FROM sequence_steps WHERE campaign_id=$1 AND position=$2`
	s, err := scanStep(r.DB.QueryRowContext(ctx, query, campaignID, position))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SequenceStepRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*model.SequenceStep, error) {
	query := `SELECT ` + stepColumns + ` FROM sequence_steps WHERE campaign_id=$1 ORDER BY position`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []*model.SequenceStep{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

var _ SequenceStepRepositoryInterface = (*SequenceStepRepository)(nil)
