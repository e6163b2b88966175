package model

type Lead struct {
	ID        int    `db:"id" json:"id"`
	TeamID    int    `db:"team_id" json:"team_id"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Company   string `db:"company" json:"company"`
	Score     int    `db:"score" json:"score"`
}
