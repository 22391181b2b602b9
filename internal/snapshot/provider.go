package snapshot

import (
	"context"
	"errors"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
)

// Provider is the read-only data access surface the decision engines consume.
// Implementations must be safe for concurrent use; the engines issue
// independent lookups in parallel during ranking.
type Provider interface {
	GetProfile(ctx context.Context, userID int64) (*UserProfile, error)
	GetDatingProfile(ctx context.Context, userID int64) (*DatingProfile, error)
	GetFollowEdges(ctx context.Context, userID int64) (*FollowEdges, error)
	IsBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error)
	GetSwipeStats(ctx context.Context, userID int64) (*SwipeStats, error)
	GetSwipedUserIDs(ctx context.Context, userID int64) ([]int64, error)
}
