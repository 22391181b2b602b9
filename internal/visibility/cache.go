package visibility

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// AudienceCache keeps built audience member sets in Redis so the evaluator
// does not rebuild an audience on every visibility check. Misses and Redis
// failures both report "not cached"; callers rebuild and re-store.
type AudienceCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewAudienceCache(client *redis.Client, ttl time.Duration) *AudienceCache {
	return &AudienceCache{redis: client, ttl: ttl}
}

func audienceKey(ruleID string) string {
	return fmt.Sprintf("audience:%s", ruleID)
}

// Get returns the cached member ids for a rule, or ok=false on a miss.
func (c *AudienceCache) Get(ctx context.Context, ruleID string) ([]int64, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, audienceKey(ruleID)).Bytes()
	if err != nil {
		return nil, false
	}

	var members []int64
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, false
	}

	return members, true
}

// Set stores the member ids for a rule. Failures are ignored; the cache is
// an optimization, not a source of truth.
func (c *AudienceCache) Set(ctx context.Context, ruleID string, members []int64) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(members)
	if err != nil {
		return
	}

	c.redis.Set(ctx, audienceKey(ruleID), data, c.ttl)
}

// Invalidate drops the cached membership for a rule, used after rule edits.
func (c *AudienceCache) Invalidate(ctx context.Context, ruleID string) {
	if c == nil || c.redis == nil {
		return
	}

	c.redis.Del(ctx, audienceKey(ruleID))
}
