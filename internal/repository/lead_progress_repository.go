package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadencehq/outreach-backend/internal/model"
)

type LeadProgressRepositoryInterface interface {
	Create(ctx context.Context, p *model.LeadProgress) (bool, error)
	Get(ctx context.Context, campaignID, leadID int) (*model.LeadProgress, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.LeadProgress, error)
	Advance(ctx context.Context, campaignID, leadID, fromPosition, nextPosition int, nextRunAt, executedAt time.Time) (bool, error)
	Complete(ctx context.Context, campaignID, leadID, fromPosition int, executedAt time.Time) (bool, error)
}

type LeadProgressRepository struct {
	DB *sql.DB
}

const progressColumns = `campaign_id, lead_id, current_sequence_position, current_sequence_status,
        next_sequence_run_at, last_sequence_executed_at, status, created_at, updated_at`

func scanProgress(row interface{ Scan(...any) error }) (*model.LeadProgress, error) {
	var p model.LeadProgress
	err := row.Scan(
		&p.CampaignID, &p.LeadID, &p.CurrentSequencePosition, &p.CurrentSequenceStatus,
		&p.NextSequenceRunAt, &p.LastSequenceExecutedAt, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create enrolls a lead. Idempotent per (campaign, lead): a second enrollment
// is a no-op and returns false.
func (r *LeadProgressRepository) Create(ctx context.Context, p *model.LeadProgress) (bool, error) {
	query := `
        INSERT INTO lead_progress
            (campaign_id, lead_id, current_sequence_position, current_sequence_status,
             next_sequence_run_at, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        ON CONFLICT (campaign_id, lead_id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, query,
		p.CampaignID, p.LeadID, p.CurrentSequencePosition, p.CurrentSequenceStatus,
		p.NextSequenceRunAt, p.Status,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Get returns nil, nil when the pair is not enrolled.
func (r *LeadProgressRepository) Get(ctx context.Context, campaignID, leadID int) (*model.LeadProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM lead_progress WHERE campaign_id=$1 AND lead_id=$2`
	p, err := scanProgress(r.DB.QueryRowContext(ctx, query, campaignID, leadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// FindDue is the single place the "due" condition lives: active campaign,
// active lead progress, pending step, run time reached.
func (r *LeadProgressRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*model.LeadProgress, error) {
	query := `
        SELECT lp.campaign_id, lp.lead_id, lp.current_sequence_position, lp.current_sequence_status,
               lp.next_sequence_run_at, lp.last_sequence_executed_at, lp.status, lp.created_at, lp.updated_at
        FROM lead_progress lp
        JOIN campaigns c ON c.id = lp.campaign_id
        WHERE c.status = $1
          AND lp.status = $2
          AND lp.current_sequence_status = $3
          AND lp.next_sequence_run_at IS NOT NULL
          AND lp.next_sequence_run_at <= $4
        ORDER BY lp.next_sequence_run_at
        LIMIT $5
    `
	rows, err := r.DB.QueryContext(ctx, query,
		model.CampaignActive, model.ProgressActive, model.SequencePending, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []*model.LeadProgress{}
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, p)
	}
	return due, rows.Err()
}

// Advance moves the cursor to nextPosition. The WHERE clause is the
// compare-and-swap: it only matches while the row still sits pending at
// fromPosition, so a redelivered job finds zero rows and reports false.
func (r *LeadProgressRepository) Advance(ctx context.Context, campaignID, leadID, fromPosition, nextPosition int, nextRunAt, executedAt time.Time) (bool, error) {
	query := `
        UPDATE lead_progress
        SET current_sequence_position=$1, current_sequence_status=$2,
            next_sequence_run_at=$3, last_sequence_executed_at=$4, updated_at=NOW()
        WHERE campaign_id=$5 AND lead_id=$6
          AND current_sequence_position=$7 AND current_sequence_status=$8 AND status=$9
    `
	res, err := r.DB.ExecContext(ctx, query,
		nextPosition, model.SequencePending, nextRunAt, executedAt,
		campaignID, leadID, fromPosition, model.SequencePending, model.ProgressActive,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Complete finishes the cadence for the pair, guarded by the same
// compare-and-swap as Advance.
func (r *LeadProgressRepository) Complete(ctx context.Context, campaignID, leadID, fromPosition int, executedAt time.Time) (bool, error) {
	query := `
        UPDATE lead_progress
        SET current_sequence_status=$1, status=$2,
            next_sequence_run_at=NULL, last_sequence_executed_at=$3, updated_at=NOW()
        WHERE campaign_id=$4 AND lead_id=$5
          AND current_sequence_position=$6 AND current_sequence_status=$7 AND status=$8
    `
	res, err := r.DB.ExecContext(ctx, query,
		model.SequenceCompleted, model.ProgressCompleted, executedAt,
		campaignID, leadID, fromPosition, model.SequencePending, model.ProgressActive,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var _ LeadProgressRepositoryInterface = (*LeadProgressRepository)(nil)
