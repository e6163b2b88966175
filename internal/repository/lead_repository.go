package repository

import (
	"context"
	"database/sql"

	"github.com/cadencehq/outreach-backend/internal/model"
)

type LeadRepositoryInterface interface {
	GetByID(ctx context.Context, id int) (*model.Lead, error)
	FindQualified(ctx context.Context, teamID, scoreMin, scoreMax int) ([]*model.Lead, error)
}

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `id, team_id, email, phone, first_name, last_name, company, score`

func scanLead(row interface{ Scan(...any) error }) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(&l.ID, &l.TeamID, &l.Email, &l.Phone, &l.FirstName, &l.LastName, &l.Company, &l.Score)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID returns nil, nil when the lead does not exist.
func (r *LeadRepository) GetByID(ctx context.Context, id int) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	l, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// FindQualified returns the team's leads whose score falls in the campaign's
// range, inclusive on both ends.
func (r *LeadRepository) FindQualified(ctx context.Context, teamID, scoreMin, scoreMax int) ([]*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE team_id=$1 AND score BETWEEN $2 AND $3 ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, teamID, scoreMin, scoreMax)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
