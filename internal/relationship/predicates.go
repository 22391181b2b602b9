package relationship

import (
	"context"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

// Resolver answers relationship questions (friendship, following, mutual
// friends, blocks) from follow-edge data. It holds no state of its own;
// every call fetches fresh edges through the snapshot provider.
type Resolver struct {
	provider snapshot.Provider
}

func NewResolver(provider snapshot.Provider) *Resolver {
	return &Resolver{provider: provider}
}

// AreFriends reports whether a and b follow each other. A mutual follow is
// what "friend" means on this platform.
func (r *Resolver) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	edgesA, err := r.provider.GetFollowEdges(ctx, a)
	if err != nil {
		return false, err
	}
	return containsID(edgesA.Following, b) && containsID(edgesA.Followers, b), nil
}

// IsCloseFriend currently collapses onto AreFriends. There is no separate
// close-friends list in the data model yet; keeping this behind its own
// predicate lets a real list slot in later without touching call sites.
func (r *Resolver) IsCloseFriend(ctx context.Context, a, b int64) (bool, error) {
	return r.AreFriends(ctx, a, b)
}

// IsFollowing reports whether a directed follow edge exists from follower
// to followee.
func (r *Resolver) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	edges, err := r.provider.GetFollowEdges(ctx, followerID)
	if err != nil {
		return false, err
	}
	return containsID(edges.Following, followeeID), nil
}

// MutualFriendCount counts the users both a and b follow. The intersection
// runs over outbound follow targets, not follower sets.
func (r *Resolver) MutualFriendCount(ctx context.Context, a, b int64) (int, error) {
	edgesA, err := r.provider.GetFollowEdges(ctx, a)
	if err != nil {
		return 0, err
	}
	edgesB, err := r.provider.GetFollowEdges(ctx, b)
	if err != nil {
		return 0, err
	}
	return IntersectCount(edgesA.Following, edgesB.Following), nil
}

// HaveMutualFriends reports whether a and b follow at least one common user.
func (r *Resolver) HaveMutualFriends(ctx context.Context, a, b int64) (bool, error) {
	count, err := r.MutualFriendCount(ctx, a, b)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsBlocked reports whether owner has blocked viewer.
func (r *Resolver) IsBlocked(ctx context.Context, ownerID, viewerID int64) (bool, error) {
	return r.provider.IsBlocked(ctx, ownerID, viewerID)
}

// IntersectCount returns the size of the intersection of two id slices.
func IntersectCount(a, b []int64) int {
	seen := make(map[int64]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}

	count := 0
	for _, id := range b {
		if seen[id] {
			count++
			seen[id] = false // ids may repeat; count each once
		}
	}

	return count
}

func containsID(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
