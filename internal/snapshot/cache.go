package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// cachedProvider is a read-through Redis cache over another Provider.
// Only profile reads are cached; follow edges, blocks and swipe data change
// too often to be worth caching at these TTLs. Cache failures fall through
// to the inner provider so Redis going away never breaks decisions.
type cachedProvider struct {
	inner Provider
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedProvider wraps a Provider with Redis profile caching.
func NewCachedProvider(inner Provider, client *redis.Client, ttl time.Duration) Provider {
	return &cachedProvider{inner: inner, redis: client, ttl: ttl}
}

func profileKey(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

func datingProfileKey(userID int64) string {
	return fmt.Sprintf("dating_profile:%d", userID)
}

func (c *cachedProvider) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	key := profileKey(userID)
	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var profile UserProfile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
	}

	profile, err := c.inner.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		c.redis.Set(ctx, key, data, c.ttl)
	}

	return profile, nil
}

func (c *cachedProvider) GetDatingProfile(ctx context.Context, userID int64) (*DatingProfile, error) {
	key := datingProfileKey(userID)
	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var profile DatingProfile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
	}

	profile, err := c.inner.GetDatingProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		c.redis.Set(ctx, key, data, c.ttl)
	}

	return profile, nil
}

func (c *cachedProvider) GetFollowEdges(ctx context.Context, userID int64) (*FollowEdges, error) {
	return c.inner.GetFollowEdges(ctx, userID)
}

func (c *cachedProvider) IsBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	return c.inner.IsBlocked(ctx, blockerID, blockedID)
}

func (c *cachedProvider) GetSwipeStats(ctx context.Context, userID int64) (*SwipeStats, error) {
	return c.inner.GetSwipeStats(ctx, userID)
}

func (c *cachedProvider) GetSwipedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	return c.inner.GetSwipedUserIDs(ctx, userID)
}
