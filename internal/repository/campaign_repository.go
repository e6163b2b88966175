package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cadencehq/outreach-backend/internal/apperrors"
	"github.com/cadencehq/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign, steps []*model.SequenceStep) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	List(ctx context.Context, offset, limit int, status string, teamID int) ([]*model.Campaign, int, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	Approve(ctx context.Context, id int, approvedBy string, at time.Time) error
	Pause(ctx context.Context, id int, at time.Time) error
	Resume(ctx context.Context, id int, at time.Time) error
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, team_id, name, status, score_min, score_max, starts_at,
        paused_at, resumed_at, approved_at, approved_by, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.TeamID, &c.Name, &c.Status, &c.ScoreMin, &c.ScoreMax, &c.StartsAt,
		&c.PausedAt, &c.ResumedAt, &c.ApprovedAt, &c.ApprovedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts the campaign and its steps in one transaction.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign, steps []*model.SequenceStep) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignScheduled
	}

	query := `
        INSERT INTO campaigns (team_id, name, status, score_min, score_max, starts_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	err = tx.QueryRowContext(ctx, query,
		c.TeamID, c.Name, c.Status, c.ScoreMin, c.ScoreMax, c.StartsAt, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return err
	}

	stepQuery := `
        INSERT INTO sequence_steps (campaign_id, position, channel, subject, content, delay_days, delay_hours, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING id, created_at
    `
	for _, s := range steps {
		s.CampaignID = c.ID
		err = tx.QueryRowContext(ctx, stepQuery,
			c.ID, s.Position, string(s.Channel), s.Subject, s.Content, s.DelayDays, s.DelayHours,
		).Scan(&s.ID, &s.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(ctx context.Context, offset, limit int, status string, teamID int) ([]*model.Campaign, int, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	args := []any{}
	argPos := 1

	if status != "" {
		cond := fmt.Sprintf(" AND status=$%d", argPos)
		query += cond
		countQuery += cond
		args = append(args, status)
		argPos++
	}
	if teamID > 0 {
		cond := fmt.Sprintf(" AND team_id=$%d", argPos)
		query += cond
		countQuery += cond
		args = append(args, teamID)
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.ExecContext(ctx, query, status, id)
	return err
}

func (r *CampaignRepository) Approve(ctx context.Context, id int, approvedBy string, at time.Time) error {
	query := `UPDATE campaigns SET approved_at=$1, approved_by=$2, updated_at=NOW() WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, at, approvedBy, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepository) Pause(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, paused_at=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, model.CampaignPaused, at, id)
	return err
}

func (r *CampaignRepository) Resume(ctx context.Context, id int, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, resumed_at=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.ExecContext(ctx, query, model.CampaignActive, at, id)
	return err
}

// ActivateDue flips scheduled campaigns whose start time has passed to active,
// but only approved ones. Unapproved campaigns stay scheduled. Idempotent:
// already-active rows never match.
func (r *CampaignRepository) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
        UPDATE campaigns
        SET status=$1, updated_at=NOW()
        WHERE status=$2 AND starts_at <= $3 AND approved_at IS NOT NULL
    `
	res, err := r.DB.ExecContext(ctx, query, model.CampaignActive, model.CampaignScheduled, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
