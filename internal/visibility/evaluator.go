package visibility

import (
	"context"
	"log"
	"strings"

	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

// AudienceMembership answers whether a user currently belongs to a saved
// audience rule. The service backs this with the builder plus a Redis
// cache; the evaluator only cares about the yes/no.
type AudienceMembership interface {
	IsMember(ctx context.Context, ruleID string, viewerID int64) (bool, error)
}

// Evaluator decides whether a viewer may see a piece of content. It is
// stateless; concurrent evaluations for different viewers are independent.
type Evaluator struct {
	provider  snapshot.Provider
	rel       *relationship.Resolver
	audiences AudienceMembership
}

func NewEvaluator(provider snapshot.Provider, rel *relationship.Resolver, audiences AudienceMembership) *Evaluator {
	return &Evaluator{provider: provider, rel: rel, audiences: audiences}
}

// CanView runs the full decision chain in fixed order: owner self-view,
// block check, basic level, explicit overrides, custom audiences, then
// attribute filters. The first failing check short-circuits with its
// reason. Any unexpected lookup error denies with "system error": the
// engine fails closed, never open.
func (e *Evaluator) CanView(ctx context.Context, viewerID, ownerID, contentID int64, contentType string, policy *Policy) Decision {
	// 1. Owners always see their own content
	if viewerID == ownerID {
		return allow()
	}

	// 2. A block overrides everything else
	blocked, err := e.rel.IsBlocked(ctx, ownerID, viewerID)
	if err != nil {
		return e.systemError("block lookup", contentID, err)
	}
	if blocked {
		return deny(ReasonBlocked)
	}

	// 3. Basic visibility level
	if decision, done, err := e.checkLevel(ctx, viewerID, ownerID, policy.Level); err != nil {
		return e.systemError("level check", contentID, err)
	} else if done {
		return decision
	}

	// 4. Explicit overrides and custom audiences. Exclusion is checked
	// first and is absolute; inclusion bypasses the remaining checks.
	if containsInt64(policy.ExcludedUserIDs, viewerID) {
		return deny(ReasonExcluded)
	}
	if containsInt64(policy.IncludedUserIDs, viewerID) {
		return allow()
	}
	// custom_list content with no audiences configured admits nobody
	// beyond the owner and explicit includes
	if policy.Level == LevelCustomList && len(policy.CustomAudienceIDs) == 0 {
		return deny(ReasonNotInAudience)
	}
	if len(policy.CustomAudienceIDs) > 0 {
		member, err := e.inAnyAudience(ctx, policy.CustomAudienceIDs, viewerID)
		if err != nil {
			return e.systemError("audience membership", contentID, err)
		}
		if !member {
			return deny(ReasonNotInAudience)
		}
	}

	// 5. Advanced attribute filters
	if decision, err := e.checkFilters(ctx, viewerID, ownerID, policy); err != nil {
		return e.systemError("attribute filters", contentID, err)
	} else if !decision.CanView {
		return decision
	}

	return allow()
}

// checkLevel enforces the basic tier. done=true means the decision is
// final (deny, or public/private fast path); done=false means the level
// passed and later checks still apply.
func (e *Evaluator) checkLevel(ctx context.Context, viewerID, ownerID int64, level Level) (Decision, bool, error) {
	switch level {
	case LevelPublic, LevelCustomList:
		// custom_list content is gated entirely by the audience check
		return allow(), false, nil

	case LevelPrivate:
		return deny(ReasonPrivate), true, nil

	case LevelFriends:
		friends, err := e.rel.AreFriends(ctx, viewerID, ownerID)
		if err != nil {
			return Decision{}, false, err
		}
		if !friends {
			return deny(ReasonFriendsOnly), true, nil
		}

	case LevelCloseFriends:
		closeFriend, err := e.rel.IsCloseFriend(ctx, viewerID, ownerID)
		if err != nil {
			return Decision{}, false, err
		}
		if !closeFriend {
			return deny(ReasonCloseFriendsOnly), true, nil
		}

	case LevelFollowers:
		following, err := e.rel.IsFollowing(ctx, viewerID, ownerID)
		if err != nil {
			return Decision{}, false, err
		}
		if !following {
			return deny(ReasonFollowersOnly), true, nil
		}

	case LevelMutualFriends:
		mutual, err := e.rel.HaveMutualFriends(ctx, viewerID, ownerID)
		if err != nil {
			return Decision{}, false, err
		}
		if !mutual {
			return deny(ReasonMutualFriendsOnly), true, nil
		}

	default:
		// Unknown or missing level fails closed
		return deny(ReasonPrivate), true, nil
	}

	return allow(), false, nil
}

func (e *Evaluator) inAnyAudience(ctx context.Context, ruleIDs []string, viewerID int64) (bool, error) {
	for _, ruleID := range ruleIDs {
		member, err := e.audiences.IsMember(ctx, ruleID, viewerID)
		if err != nil {
			return false, err
		}
		if member {
			return true, nil
		}
	}
	return false, nil
}

// checkFilters applies the advanced attribute filters against the viewer's
// profile. Filters are skipped entirely when the policy declares none.
func (e *Evaluator) checkFilters(ctx context.Context, viewerID, ownerID int64, policy *Policy) (Decision, error) {
	if policy.Location == nil && policy.Demographic == nil &&
		policy.Interest == nil && policy.Relationship == nil {
		return allow(), nil
	}

	viewer, err := e.provider.GetProfile(ctx, viewerID)
	if err != nil {
		return Decision{}, err
	}

	if f := policy.Location; f != nil {
		if !locationFilterPasses(f, viewer.Location) {
			return deny(ReasonLocationFiltered), nil
		}
	}

	if f := policy.Demographic; f != nil {
		if f.VerifiedOnly && !viewer.IsVerified {
			return deny(ReasonUnverified), nil
		}
		if f.AgeMin != nil || f.AgeMax != nil {
			if viewer.Age == nil {
				return deny(ReasonAgeFiltered), nil
			}
			if f.AgeMin != nil && *viewer.Age < *f.AgeMin {
				return deny(ReasonAgeFiltered), nil
			}
			if f.AgeMax != nil && *viewer.Age > *f.AgeMax {
				return deny(ReasonAgeFiltered), nil
			}
		}
	}

	if f := policy.Interest; f != nil {
		if !interestFilterPasses(f, viewer.Interests) {
			return deny(ReasonInterestFiltered), nil
		}
	}

	if f := policy.Relationship; f != nil {
		if f.MinimumMutualFriends > 0 {
			count, err := e.rel.MutualFriendCount(ctx, viewerID, ownerID)
			if err != nil {
				return Decision{}, err
			}
			if count < f.MinimumMutualFriends {
				return deny(ReasonNotEnoughMutuals), nil
			}
		}
		if f.FollowersOnly {
			following, err := e.rel.IsFollowing(ctx, viewerID, ownerID)
			if err != nil {
				return Decision{}, err
			}
			if !following {
				return deny(ReasonFollowersOnly), nil
			}
		}
		if f.FollowingOnly {
			followed, err := e.rel.IsFollowing(ctx, ownerID, viewerID)
			if err != nil {
				return Decision{}, err
			}
			if !followed {
				return deny(ReasonFollowingOnly), nil
			}
		}
	}

	return allow(), nil
}

func locationFilterPasses(f *LocationFilter, loc *snapshot.Location) bool {
	// Exclusions first, and they are absolute
	if loc != nil {
		if containsFold(f.ExcludeCountries, loc.Country) {
			return false
		}
		if containsFold(f.ExcludeCities, loc.City) {
			return false
		}
	}

	// Allow-lists require a matching location; a viewer with no location
	// cannot satisfy one
	if len(f.Countries) > 0 || len(f.Cities) > 0 {
		if loc == nil {
			return false
		}
		countryOK := len(f.Countries) == 0 || containsFold(f.Countries, loc.Country)
		cityOK := len(f.Cities) == 0 || containsFold(f.Cities, loc.City)
		if !countryOK || !cityOK {
			return false
		}
	}

	return true
}

func interestFilterPasses(f *InterestFilter, interests []string) bool {
	for _, excluded := range f.ExcludeInterests {
		if containsFold(interests, excluded) {
			return false
		}
	}

	if len(f.IncludeInterests) > 0 {
		for _, included := range f.IncludeInterests {
			if containsFold(interests, included) {
				return true
			}
		}
		return false
	}

	return true
}

func (e *Evaluator) systemError(stage string, contentID int64, err error) Decision {
	log.Printf("visibility: %s failed for content %d: %v", stage, contentID, err)
	RecordCheckError(stage)
	return deny(ReasonSystemError)
}

func containsInt64(ids []int64, target int64) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
