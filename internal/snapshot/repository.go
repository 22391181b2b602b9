package snapshot

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresProvider struct {
	db *sqlx.DB
}

// NewPostgresProvider creates a Provider backed by PostgreSQL.
func NewPostgresProvider(db *sqlx.DB) Provider {
	return &postgresProvider{db: db}
}

func (p *postgresProvider) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	var profile UserProfile
	var loc Location
	var lat, lng sql.NullFloat64
	var country, city sql.NullString
	var interests pq.StringArray

	// A dating-profile age override wins over the birth-date derived age.
	// This mirrors how users correct an imported birth date without
	// touching their account record.
	query := `
        SELECT u.id, u.username,
               COALESCE(dp.age, EXTRACT(YEAR FROM AGE(u.birth_date))::int) as age,
               u.country, u.city, u.latitude, u.longitude,
               u.interests, u.is_verified, u.followers_count, u.last_active
        FROM users u
        LEFT JOIN dating_profiles dp ON dp.user_id = u.id
        WHERE u.id = $1 AND u.is_active = TRUE
    `

	var age sql.NullInt64
	row := p.db.QueryRowxContext(ctx, query, userID)
	err := row.Scan(
		&profile.ID, &profile.Username, &age,
		&country, &city, &lat, &lng,
		&interests, &profile.IsVerified,
		&profile.FollowersCount, &profile.LastActive,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if age.Valid {
		a := int(age.Int64)
		profile.Age = &a
	}

	if country.Valid || city.Valid {
		loc.Country = country.String
		loc.City = city.String
		if lat.Valid {
			loc.Latitude = &lat.Float64
		}
		if lng.Valid {
			loc.Longitude = &lng.Float64
		}
		profile.Location = &loc
	}

	profile.Interests = interests
	return &profile, nil
}

func (p *postgresProvider) GetDatingProfile(ctx context.Context, userID int64) (*DatingProfile, error) {
	base, err := p.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var dp DatingProfile
	dp.UserProfile = *base

	var photos pq.StringArray
	query := `
        SELECT bio, photos, pref_age_min, pref_age_max,
               pref_max_distance_km, pref_interested_in
        FROM dating_profiles
        WHERE user_id = $1
    `

	row := p.db.QueryRowxContext(ctx, query, userID)
	err = row.Scan(
		&dp.Bio, &photos,
		&dp.Preferences.AgeMin, &dp.Preferences.AgeMax,
		&dp.Preferences.MaxDistanceKm, &dp.Preferences.InterestedIn,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	dp.Photos = photos

	stats, err := p.GetSwipeStats(ctx, userID)
	if err == nil {
		dp.SwipeStats = stats
	}

	return &dp, nil
}

func (p *postgresProvider) GetFollowEdges(ctx context.Context, userID int64) (*FollowEdges, error) {
	edges := &FollowEdges{}

	followerQuery := `SELECT follower_id FROM follows WHERE followee_id = $1`
	if err := p.db.SelectContext(ctx, &edges.Followers, followerQuery, userID); err != nil {
		return nil, err
	}

	followingQuery := `SELECT followee_id FROM follows WHERE follower_id = $1`
	if err := p.db.SelectContext(ctx, &edges.Following, followingQuery, userID); err != nil {
		return nil, err
	}

	return edges, nil
}

func (p *postgresProvider) IsBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	// Blocks are a first-class relation, not a tagged report entry.
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM blocks
            WHERE blocker_id = $1 AND blocked_id = $2
        )
    `

	err := p.db.GetContext(ctx, &exists, query, blockerID, blockedID)
	return exists, err
}

func (p *postgresProvider) GetSwipeStats(ctx context.Context, userID int64) (*SwipeStats, error) {
	var stats SwipeStats
	query := `
        SELECT
            COUNT(*) FILTER (WHERE action = 'like') as total_likes,
            COUNT(*) FILTER (WHERE action = 'pass') as total_passes,
            COUNT(*) FILTER (WHERE action = 'like' AND is_match = TRUE) as total_matches
        FROM swipes
        WHERE user_id = $1
    `

	err := p.db.GetContext(ctx, &stats, query, userID)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (p *postgresProvider) GetSwipedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT target_id FROM swipes WHERE user_id = $1`

	err := p.db.SelectContext(ctx, &ids, query, userID)
	return ids, err
}
