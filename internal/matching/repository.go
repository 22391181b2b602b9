package matching

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Repository finds the raw candidate pool for ranking. Scoring never
// happens in SQL; the queries only bound how many profiles the engine
// has to look at.
type Repository interface {
	GetCandidateIDs(ctx context.Context, userID int64, ageMin, ageMax, limit int) ([]int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetCandidateIDs(ctx context.Context, userID int64, ageMin, ageMax, limit int) ([]int64, error) {
	var ids []int64

	// Recently active first so a bounded pool still contains the people
	// most likely to respond
	query := `
        SELECT u.id
        FROM users u
        JOIN dating_profiles dp ON dp.user_id = u.id
        WHERE u.id != $1
          AND u.is_active = TRUE
          AND COALESCE(dp.age, EXTRACT(YEAR FROM AGE(u.birth_date))::int) BETWEEN $2 AND $3
          AND NOT EXISTS (
              SELECT 1 FROM swipes s
              WHERE s.user_id = $1 AND s.target_id = u.id
          )
          AND NOT EXISTS (
              SELECT 1 FROM blocks b
              WHERE (b.blocker_id = $1 AND b.blocked_id = u.id)
                 OR (b.blocker_id = u.id AND b.blocked_id = $1)
          )
        ORDER BY u.last_active DESC
        LIMIT $4
    `

	err := r.db.SelectContext(ctx, &ids, query, userID, ageMin, ageMax, limit)
	return ids, err
}
