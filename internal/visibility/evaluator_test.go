package visibility

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

type fakeProvider struct {
	profiles map[int64]*snapshot.UserProfile
	edges    map[int64]*snapshot.FollowEdges
	blocks   map[[2]int64]bool
	err      error
}

func (f *fakeProvider) GetProfile(ctx context.Context, userID int64) (*snapshot.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if profile, ok := f.profiles[userID]; ok {
		return profile, nil
	}
	return nil, snapshot.ErrProfileNotFound
}

func (f *fakeProvider) GetDatingProfile(ctx context.Context, userID int64) (*snapshot.DatingProfile, error) {
	return nil, snapshot.ErrProfileNotFound
}

func (f *fakeProvider) GetFollowEdges(ctx context.Context, userID int64) (*snapshot.FollowEdges, error) {
	if f.err != nil {
		return nil, f.err
	}
	if edges, ok := f.edges[userID]; ok {
		return edges, nil
	}
	return &snapshot.FollowEdges{}, nil
}

func (f *fakeProvider) IsBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.blocks[[2]int64{blockerID, blockedID}], nil
}

func (f *fakeProvider) GetSwipeStats(ctx context.Context, userID int64) (*snapshot.SwipeStats, error) {
	return &snapshot.SwipeStats{}, nil
}

func (f *fakeProvider) GetSwipedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

type fakeMembership struct {
	members map[string][]int64
	err     error
}

func (f *fakeMembership) IsMember(ctx context.Context, ruleID string, viewerID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.members[ruleID] {
		if id == viewerID {
			return true, nil
		}
	}
	return false, nil
}

func newTestEvaluator(provider *fakeProvider, membership AudienceMembership) *Evaluator {
	if membership == nil {
		membership = &fakeMembership{}
	}
	return NewEvaluator(provider, relationship.NewResolver(provider), membership)
}

func TestOwnerAlwaysSeesOwnContent(t *testing.T) {
	// Even a private policy with the owner excluded cannot hide the
	// content from the owner
	evaluator := newTestEvaluator(&fakeProvider{
		blocks: map[[2]int64]bool{{1, 1}: true},
	}, nil)

	policy := &Policy{Level: LevelPrivate, ExcludedUserIDs: []int64{1}}
	decision := evaluator.CanView(context.Background(), 1, 1, 100, "post", policy)

	assert.True(t, decision.CanView)
	assert.Empty(t, decision.Reason)
}

func TestBlockOverridesEverything(t *testing.T) {
	// Viewer 2 is blocked by owner 1 but explicitly included; the block wins
	evaluator := newTestEvaluator(&fakeProvider{
		blocks: map[[2]int64]bool{{1, 2}: true},
	}, nil)

	policy := &Policy{Level: LevelPublic, IncludedUserIDs: []int64{2}}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonBlocked, decision.Reason)
}

func TestPublicContentIsVisible(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", &Policy{Level: LevelPublic})
	assert.True(t, decision.CanView)
}

func TestPrivateContentIsHidden(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", &Policy{Level: LevelPrivate})
	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonPrivate, decision.Reason)
}

func TestFriendsLevelRequiresMutualFollow(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		edges: map[int64]*snapshot.FollowEdges{
			// 2 follows 1, but 1 does not follow back
			2: {Following: []int64{1}},
			3: {Followers: []int64{1}, Following: []int64{1}},
			1: {Followers: []int64{2, 3}, Following: []int64{3}},
		},
	}, nil)

	ctx := context.Background()
	policy := &Policy{Level: LevelFriends}

	oneWay := evaluator.CanView(ctx, 2, 1, 100, "post", policy)
	assert.False(t, oneWay.CanView)
	assert.Equal(t, "Only friends can view this content", oneWay.Reason)

	mutual := evaluator.CanView(ctx, 3, 1, 100, "post", policy)
	assert.True(t, mutual.CanView)
}

func TestFollowersLevel(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		edges: map[int64]*snapshot.FollowEdges{
			2: {Following: []int64{1}},
		},
	}, nil)

	ctx := context.Background()
	policy := &Policy{Level: LevelFollowers}

	follower := evaluator.CanView(ctx, 2, 1, 100, "story", policy)
	assert.True(t, follower.CanView)

	stranger := evaluator.CanView(ctx, 3, 1, 100, "story", policy)
	assert.False(t, stranger.CanView)
	assert.Equal(t, ReasonFollowersOnly, stranger.Reason)
}

func TestUnknownLevelFailsClosed(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", &Policy{Level: "everyone"})
	assert.False(t, decision.CanView)
}

func TestExclusionBeatsInclusion(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	policy := &Policy{
		Level:           LevelPublic,
		ExcludedUserIDs: []int64{2},
		IncludedUserIDs: []int64{2},
	}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonExcluded, decision.Reason)
}

func TestInclusionBypassesFilters(t *testing.T) {
	// Included viewer has no profile at all, so the demographic filter
	// could never pass; inclusion short-circuits before filters run
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	ageMin := 30
	policy := &Policy{
		Level:           LevelPublic,
		IncludedUserIDs: []int64{2},
		Demographic:     &DemographicFilter{AgeMin: &ageMin},
	}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.True(t, decision.CanView)
}

func TestCustomAudienceMembership(t *testing.T) {
	membership := &fakeMembership{members: map[string][]int64{
		"rule-a": {2},
	}}
	evaluator := newTestEvaluator(&fakeProvider{}, membership)

	ctx := context.Background()
	policy := &Policy{Level: LevelCustomList, CustomAudienceIDs: []string{"rule-a"}}

	member := evaluator.CanView(ctx, 2, 1, 100, "post", policy)
	assert.True(t, member.CanView)

	outsider := evaluator.CanView(ctx, 3, 1, 100, "post", policy)
	assert.False(t, outsider.CanView)
	assert.Equal(t, ReasonNotInAudience, outsider.Reason)
}

func TestCustomListWithoutAudiencesIsHidden(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{}, nil)
	ctx := context.Background()

	// custom_list content with no audiences configured admits nobody
	// except the owner and explicit includes
	stranger := evaluator.CanView(ctx, 2, 1, 100, "post", &Policy{Level: LevelCustomList})
	assert.False(t, stranger.CanView)
	assert.Equal(t, ReasonNotInAudience, stranger.Reason)

	included := evaluator.CanView(ctx, 2, 1, 100, "post", &Policy{
		Level:           LevelCustomList,
		IncludedUserIDs: []int64{2},
	})
	assert.True(t, included.CanView)

	owner := evaluator.CanView(ctx, 1, 1, 100, "post", &Policy{Level: LevelCustomList})
	assert.True(t, owner.CanView)
}

func TestMissingLevelFailsClosed(t *testing.T) {
	// A persisted policy that lost its level field must not fall open
	evaluator := newTestEvaluator(&fakeProvider{}, nil)

	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", &Policy{})
	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonPrivate, decision.Reason)
}

func TestAnyAudienceGrantsAccess(t *testing.T) {
	membership := &fakeMembership{members: map[string][]int64{
		"rule-a": {},
		"rule-b": {2},
	}}
	evaluator := newTestEvaluator(&fakeProvider{}, membership)

	policy := &Policy{Level: LevelPublic, CustomAudienceIDs: []string{"rule-a", "rule-b"}}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.True(t, decision.CanView)
}

func TestDemographicFilter(t *testing.T) {
	age25, age35 := 25, 35
	evaluator := newTestEvaluator(&fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			2: {ID: 2, Age: &age25},
			3: {ID: 3, Age: &age35, IsVerified: true},
			4: {ID: 4},
		},
	}, nil)

	ctx := context.Background()
	ageMin := 30
	policy := &Policy{
		Level:       LevelPublic,
		Demographic: &DemographicFilter{AgeMin: &ageMin, VerifiedOnly: true},
	}

	tooYoung := evaluator.CanView(ctx, 2, 1, 100, "post", policy)
	assert.False(t, tooYoung.CanView)

	passes := evaluator.CanView(ctx, 3, 1, 100, "post", policy)
	assert.True(t, passes.CanView)

	// Age bounds with no known age deny
	noAge := evaluator.CanView(ctx, 4, 1, 100, "post", policy)
	assert.False(t, noAge.CanView)
}

func TestLocationFilterExclusionWins(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			2: {ID: 2, Location: &snapshot.Location{Country: "US", City: "Austin"}},
		},
	}, nil)

	policy := &Policy{
		Level: LevelPublic,
		Location: &LocationFilter{
			Countries:     []string{"US"},
			ExcludeCities: []string{"austin"},
		},
	}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonLocationFiltered, decision.Reason)
}

func TestInterestFilter(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			2: {ID: 2, Interests: []string{"hiking", "jazz"}},
			3: {ID: 3, Interests: []string{"gaming"}},
		},
	}, nil)

	ctx := context.Background()
	policy := &Policy{
		Level:    LevelPublic,
		Interest: &InterestFilter{IncludeInterests: []string{"Hiking"}},
	}

	hiker := evaluator.CanView(ctx, 2, 1, 100, "post", policy)
	assert.True(t, hiker.CanView)

	gamer := evaluator.CanView(ctx, 3, 1, 100, "post", policy)
	assert.False(t, gamer.CanView)
	assert.Equal(t, ReasonInterestFiltered, gamer.Reason)
}

func TestMutualFriendFilter(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			2: {ID: 2},
		},
		edges: map[int64]*snapshot.FollowEdges{
			1: {Following: []int64{10, 11, 12}},
			2: {Following: []int64{10, 11}},
		},
	}, nil)

	ctx := context.Background()

	decision := evaluator.CanView(ctx, 2, 1, 100, "post", &Policy{
		Level:        LevelPublic,
		Relationship: &RelationshipFilter{MinimumMutualFriends: 2},
	})
	assert.True(t, decision.CanView)

	decision = evaluator.CanView(ctx, 2, 1, 100, "post", &Policy{
		Level:        LevelPublic,
		Relationship: &RelationshipFilter{MinimumMutualFriends: 3},
	})
	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonNotEnoughMutuals, decision.Reason)
}

func TestFollowingOnlyFilter(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			2: {ID: 2},
			3: {ID: 3},
		},
		edges: map[int64]*snapshot.FollowEdges{
			1: {Following: []int64{2}},
		},
	}, nil)

	ctx := context.Background()
	policy := &Policy{
		Level:        LevelPublic,
		Relationship: &RelationshipFilter{FollowingOnly: true},
	}

	followed := evaluator.CanView(ctx, 2, 1, 100, "post", policy)
	assert.True(t, followed.CanView)

	// The denial names the owner-follows-viewer direction, not the
	// followers one
	stranger := evaluator.CanView(ctx, 3, 1, 100, "post", policy)
	assert.False(t, stranger.CanView)
	assert.Equal(t, ReasonFollowingOnly, stranger.Reason)
}

func TestProviderErrorFailsClosed(t *testing.T) {
	evaluator := newTestEvaluator(&fakeProvider{err: errors.New("connection reset")}, nil)

	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", &Policy{Level: LevelFriends})

	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonSystemError, decision.Reason)
}

func TestMembershipErrorFailsClosed(t *testing.T) {
	membership := &fakeMembership{err: errors.New("redis down")}
	evaluator := newTestEvaluator(&fakeProvider{}, membership)

	policy := &Policy{Level: LevelPublic, CustomAudienceIDs: []string{"rule-a"}}
	decision := evaluator.CanView(context.Background(), 2, 1, 100, "post", policy)

	assert.False(t, decision.CanView)
	assert.Equal(t, ReasonSystemError, decision.Reason)
}

func TestPolicyJSONRoundTrip(t *testing.T) {
	ageMin := 21
	original := &Policy{
		Level:             LevelCustomList,
		CustomAudienceIDs: []string{"rule-a"},
		ExcludedUserIDs:   []int64{7},
		Demographic:       &DemographicFilter{AgeMin: &ageMin, VerifiedOnly: true},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded := &Policy{}
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, original, decoded)
}
