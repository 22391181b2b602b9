package visibility

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository persists audience rules and build snapshots.
type Repository interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	GetOwnerRules(ctx context.Context, ownerID int64) ([]*Rule, error)
	UpdateRule(ctx context.Context, rule *Rule) error
	DeleteRule(ctx context.Context, ruleID string, ownerID int64) error
	SaveAudienceSnapshot(ctx context.Context, snapshot *AudienceSnapshot) error
}

// AudienceSnapshot is the auditable analytics record saved after a build:
// how many members matched and a bounded sample of who. Each row is
// immutable and tied to one build run by its correlation id.
type AudienceSnapshot struct {
	CorrelationID string        `json:"correlation_id" db:"correlation_id"`
	RuleID        string        `json:"rule_id" db:"rule_id"`
	OwnerID       int64         `json:"owner_id" db:"owner_id"`
	MemberCount   int           `json:"member_count" db:"member_count"`
	MemberSample  pq.Int64Array `json:"member_sample" db:"member_sample"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateRule(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO audience_rules (id, owner_id, name, conditions, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at
    `

	return r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.OwnerID, rule.Name, conditionsJSON, rule.IsActive,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *postgresRepository) GetRule(ctx context.Context, ruleID string) (*Rule, error) {
	var rule Rule
	var conditionsJSON []byte

	query := `
        SELECT id, owner_id, name, conditions, is_active, created_at, updated_at
        FROM audience_rules
        WHERE id = $1
    `

	row := r.db.QueryRowxContext(ctx, query, ruleID)
	err := row.Scan(
		&rule.ID, &rule.OwnerID, &rule.Name, &conditionsJSON,
		&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
		return nil, err
	}

	return &rule, nil
}

func (r *postgresRepository) GetOwnerRules(ctx context.Context, ownerID int64) ([]*Rule, error) {
	query := `
        SELECT id, owner_id, name, conditions, is_active, created_at, updated_at
        FROM audience_rules
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.db.QueryxContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		var rule Rule
		var conditionsJSON []byte

		err := rows.Scan(
			&rule.ID, &rule.OwnerID, &rule.Name, &conditionsJSON,
			&rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(conditionsJSON, &rule.Conditions); err != nil {
			continue
		}

		rules = append(rules, &rule)
	}

	return rules, nil
}

func (r *postgresRepository) UpdateRule(ctx context.Context, rule *Rule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	query := `
        UPDATE audience_rules
        SET name = $3, conditions = $4, is_active = $5, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND owner_id = $2
    `

	result, err := r.db.ExecContext(
		ctx, query,
		rule.ID, rule.OwnerID, rule.Name, conditionsJSON, rule.IsActive,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteRule(ctx context.Context, ruleID string, ownerID int64) error {
	query := `DELETE FROM audience_rules WHERE id = $1 AND owner_id = $2`

	result, err := r.db.ExecContext(ctx, query, ruleID, ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (r *postgresRepository) SaveAudienceSnapshot(ctx context.Context, snapshot *AudienceSnapshot) error {
	query := `
        INSERT INTO audience_snapshots (
            correlation_id, rule_id, owner_id, member_count, member_sample
        ) VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `

	return r.db.QueryRowxContext(
		ctx, query,
		snapshot.CorrelationID, snapshot.RuleID, snapshot.OwnerID,
		snapshot.MemberCount, snapshot.MemberSample,
	).Scan(&snapshot.CreatedAt)
}
