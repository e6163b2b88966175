package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadencehq/outreach-backend/internal/model"
)

type ExecutionRepositoryInterface interface {
	Insert(ctx context.Context, e *model.Execution) error
	ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]*model.Execution, int, error)
	StatsByCampaign(ctx context.Context, campaignID int) (map[string]int, error)
}

// ExecutionRepository writes the append-only send audit trail.
type ExecutionRepository struct {
	DB *sql.DB
}

func (r *ExecutionRepository) Insert(ctx context.Context, e *model.Execution) error {
	e.CreatedAt = time.Now()
	query := `
        INSERT INTO executions (campaign_id, sequence_step_id, lead_id, status, failed_reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query,
		e.CampaignID, e.SequenceStepID, e.LeadID, e.Status, e.FailedReason, e.CreatedAt,
	).Scan(&e.ID)
}

func (r *ExecutionRepository) ListByCampaign(ctx context.Context, campaignID, offset, limit int) ([]*model.Execution, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM executions WHERE campaign_id=$1`
	if err := r.DB.QueryRowContext(ctx, countQuery, campaignID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT id, campaign_id, sequence_step_id, lead_id, status, failed_reason, created_at
        FROM executions
        WHERE campaign_id=$1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	executions := []*model.Execution{}
	for rows.Next() {
		var e model.Execution
		err := rows.Scan(&e.ID, &e.CampaignID, &e.SequenceStepID, &e.LeadID, &e.Status, &e.FailedReason, &e.CreatedAt)
		if err != nil {
			return nil, 0, err
		}
		executions = append(executions, &e)
	}
	return executions, total, rows.Err()
}

func (r *ExecutionRepository) StatsByCampaign(ctx context.Context, campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM executions WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		model.ExecutionCompleted: 0,
		model.ExecutionFailed:    0,
		model.ExecutionBlocked:   0,
	}
	total := 0
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		total += count
	}
	stats["total"] = total
	return stats, rows.Err()
}

var _ ExecutionRepositoryInterface = (*ExecutionRepository)(nil)
