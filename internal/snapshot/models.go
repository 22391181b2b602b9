package snapshot

import (
	"time"
)

// Location is the coarse location attached to a profile. Coordinates are
// optional; city/country matching works without them.
type Location struct {
	Country   string   `json:"country" db:"country"`
	City      string   `json:"city" db:"city"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
}

// UserProfile is the read-only snapshot the engines evaluate against.
// It is rebuilt from persisted records on every call and never mutated.
type UserProfile struct {
	ID             int64     `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Age            *int      `json:"age,omitempty" db:"age"`
	Location       *Location `json:"location,omitempty"`
	Interests      []string  `json:"interests"`
	IsVerified     bool      `json:"is_verified" db:"is_verified"`
	FollowersCount int       `json:"followers_count" db:"followers_count"`
	LastActive     time.Time `json:"last_active" db:"last_active"`
}

// Preferences are the dating preferences a user has declared.
type Preferences struct {
	AgeMin        int     `json:"age_min" db:"pref_age_min"`
	AgeMax        int     `json:"age_max" db:"pref_age_max"`
	MaxDistanceKm float64 `json:"max_distance_km" db:"pref_max_distance_km"`
	InterestedIn  string  `json:"interested_in" db:"pref_interested_in"`
}

// SwipeStats summarize a user's swipe history.
type SwipeStats struct {
	TotalLikes   int `json:"total_likes" db:"total_likes"`
	TotalPasses  int `json:"total_passes" db:"total_passes"`
	TotalMatches int `json:"total_matches" db:"total_matches"`
}

// Selectivity returns likes/(likes+passes), or 0 when the user has not
// swiped yet.
func (s *SwipeStats) Selectivity() float64 {
	total := s.TotalLikes + s.TotalPasses
	if total == 0 {
		return 0
	}
	return float64(s.TotalLikes) / float64(total)
}

// MatchRate returns matches/likes, or 0 when the user has not liked anyone.
func (s *SwipeStats) MatchRate() float64 {
	if s.TotalLikes == 0 {
		return 0
	}
	return float64(s.TotalMatches) / float64(s.TotalLikes)
}

// DatingProfile extends UserProfile with the fields the matching engine needs.
type DatingProfile struct {
	UserProfile
	Bio         string      `json:"bio" db:"bio"`
	Photos      []string    `json:"photos"`
	Preferences Preferences `json:"preferences"`
	SwipeStats  *SwipeStats `json:"swipe_stats,omitempty"`
}

// FollowEdges holds both directions of a user's follow graph.
type FollowEdges struct {
	Followers []int64 `json:"followers"`
	Following []int64 `json:"following"`
}
