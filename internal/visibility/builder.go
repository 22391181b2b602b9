package visibility

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

// Builder computes the set of users matching an audience rule. The
// candidate pool is bounded to the owner's followers and followees; the
// platform never scans the full user base for an audience.
type Builder struct {
	provider snapshot.Provider
	rel      *relationship.Resolver
}

func NewBuilder(provider snapshot.Provider, rel *relationship.Resolver) *Builder {
	return &Builder{provider: provider, rel: rel}
}

// Build returns the ids of every candidate matching all of the rule's
// conditions. The rule does not have to be persisted; preview requests
// pass an ephemeral rule through the same path. A candidate whose profile
// cannot be fetched is skipped and logged, never aborts the build.
func (b *Builder) Build(ctx context.Context, ownerID int64, rule *Rule) ([]int64, error) {
	start := time.Now()

	edges, err := b.provider.GetFollowEdges(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	needsMutuals := ruleNeedsMutualFriends(rule)

	candidates := unionIDs(edges.Followers, edges.Following)
	members := make([]int64, 0, len(candidates))

	for _, candidateID := range candidates {
		if candidateID == ownerID {
			continue
		}

		profile, err := b.provider.GetProfile(ctx, candidateID)
		if err != nil {
			log.Printf("audience build: skipping candidate %d: %v", candidateID, err)
			continue
		}

		eval := &EvalProfile{Profile: profile}

		// Mutual-friend counts cost two edge fetches each, so only
		// compute them when the rule actually asks
		if needsMutuals {
			count, err := b.rel.MutualFriendCount(ctx, ownerID, candidateID)
			if err != nil {
				log.Printf("audience build: skipping candidate %d: %v", candidateID, err)
				continue
			}
			eval.MutualFriends = count
		}

		if rule.Matches(eval) {
			members = append(members, candidateID)
		}
	}

	ObserveAudienceBuild(time.Since(start), len(members))
	return members, nil
}

func ruleNeedsMutualFriends(rule *Rule) bool {
	for _, cond := range rule.Conditions {
		if cond.Type == ConditionMutualFriends {
			return true
		}
	}
	return false
}

// unionIDs merges two id slices into a sorted, duplicate-free slice.
func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		seen[id] = true
	}

	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
