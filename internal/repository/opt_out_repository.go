package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cadencehq/outreach-backend/internal/channel"
	"github.com/cadencehq/outreach-backend/internal/model"
)

type OptOutRepositoryInterface interface {
	Create(ctx context.Context, o *model.OptOut) error
	ListByLead(ctx context.Context, leadID int) ([]*model.OptOut, error)
}

type OptOutRepository struct {
	DB *sql.DB
}

func (r *OptOutRepository) Create(ctx context.Context, o *model.OptOut) error {
	o.CreatedAt = time.Now()
	query := `
        INSERT INTO opt_outs (lead_id, channel, reason, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, o.LeadID, string(o.Channel), o.Reason, o.CreatedAt).Scan(&o.ID)
}

func (r *OptOutRepository) ListByLead(ctx context.Context, leadID int) ([]*model.OptOut, error) {
	query := `SELECT id, lead_id, channel, reason, created_at FROM opt_outs WHERE lead_id=$1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	optOuts := []*model.OptOut{}
	for rows.Next() {
		var o model.OptOut
		var ch string
		if err := rows.Scan(&o.ID, &o.LeadID, &ch, &o.Reason, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Channel = channel.Channel(ch)
		optOuts = append(optOuts, &o)
	}
	return optOuts, rows.Err()
}

var _ OptOutRepositoryInterface = (*OptOutRepository)(nil)
