package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

func TestNewConditionRejectsBadCombinations(t *testing.T) {
	// greater_than makes no sense on interests
	_, err := NewCondition(ConditionInterests, OpGreaterThan, NumberValue(3))
	assert.ErrorIs(t, err, ErrUnsupportedOperator)

	_, err = NewCondition("favorite_color", OpEquals, TextValue("blue"))
	assert.ErrorIs(t, err, ErrUnknownConditionType)

	// age wants a number, not a string
	_, err = NewCondition(ConditionAge, OpGreaterThan, TextValue("30"))
	assert.ErrorIs(t, err, ErrInvalidValueShape)

	// an empty value matches no shape
	_, err = NewCondition(ConditionAge, OpGreaterThan, ConditionValue{})
	assert.ErrorIs(t, err, ErrInvalidValueShape)
}

func TestNewConditionAcceptsValidCombinations(t *testing.T) {
	cases := []struct {
		condType ConditionType
		operator Operator
		value    ConditionValue
	}{
		{ConditionAge, OpGreaterThan, NumberValue(30)},
		{ConditionLocation, OpEquals, TextValue("Austin")},
		{ConditionLocation, OpIn, ListValue("Austin", "Dallas")},
		{ConditionInterests, OpContains, TextValue("hiking")},
		{ConditionFollowers, OpLessThan, NumberValue(1000)},
		{ConditionMutualFriends, OpGreaterThan, NumberValue(2)},
		{ConditionVerified, OpEquals, TextValue("true")},
		{ConditionCustomList, OpIn, ListValue("list-a")},
	}

	for _, tc := range cases {
		cond, err := NewCondition(tc.condType, tc.operator, tc.value)
		require.NoError(t, err, "condition %s %s", tc.condType, tc.operator)
		assert.NoError(t, cond.Validate())
	}
}

func profileWithAge(id int64, age int) *EvalProfile {
	return &EvalProfile{
		Profile: &snapshot.UserProfile{ID: id, Age: &age},
	}
}

func TestRuleMatchesAgeCondition(t *testing.T) {
	cond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(30))
	require.NoError(t, err)

	rule := &Rule{ID: "r1", Conditions: []Condition{cond}, IsActive: true}

	// Ages [25, 31, 40] against age > 30 matches only 31 and 40
	assert.False(t, rule.Matches(profileWithAge(1, 25)))
	assert.True(t, rule.Matches(profileWithAge(2, 31)))
	assert.True(t, rule.Matches(profileWithAge(3, 40)))
}

func TestRuleMissingAttributeEvaluatesFalse(t *testing.T) {
	cond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(18))
	require.NoError(t, err)

	rule := &Rule{Conditions: []Condition{cond}}

	// No age on the profile: the condition is unevaluable, so it fails
	noAge := &EvalProfile{Profile: &snapshot.UserProfile{ID: 1}}
	assert.False(t, rule.Matches(noAge))
}

func TestRuleUnsupportedConditionEvaluatesFalse(t *testing.T) {
	// A condition deserialized from old data may carry a combination the
	// table no longer supports; it must fail quietly
	rule := &Rule{Conditions: []Condition{
		{Type: ConditionVerified, Operator: OpGreaterThan, Value: NumberValue(1)},
	}}

	verified := &EvalProfile{Profile: &snapshot.UserProfile{ID: 1, IsVerified: true}}
	assert.False(t, rule.Matches(verified))
}

func TestRuleConditionsAreANDed(t *testing.T) {
	ageCond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(30))
	require.NoError(t, err)
	verifiedCond, err := NewCondition(ConditionVerified, OpEquals, TextValue("true"))
	require.NoError(t, err)

	rule := &Rule{Conditions: []Condition{ageCond, verifiedCond}}

	age := 35
	oldAndVerified := &EvalProfile{
		Profile: &snapshot.UserProfile{ID: 1, Age: &age, IsVerified: true},
	}
	oldNotVerified := &EvalProfile{
		Profile: &snapshot.UserProfile{ID: 2, Age: &age, IsVerified: false},
	}

	assert.True(t, rule.Matches(oldAndVerified))
	assert.False(t, rule.Matches(oldNotVerified))
}

func TestBuilderComputesAudienceFromFollowGraph(t *testing.T) {
	ages := map[int64]int{10: 25, 11: 31, 12: 40}
	provider := &fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{},
		edges: map[int64]*snapshot.FollowEdges{
			1: {Followers: []int64{10, 11}, Following: []int64{11, 12}},
		},
	}
	for id, age := range ages {
		a := age
		provider.profiles[id] = &snapshot.UserProfile{ID: id, Age: &a}
	}

	builder := NewBuilder(provider, relationship.NewResolver(provider))

	cond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(30))
	require.NoError(t, err)
	rule := &Rule{ID: "r1", Conditions: []Condition{cond}, IsActive: true}

	members, err := builder.Build(context.Background(), 1, rule)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{11, 12}, members)
}

func TestBuilderSkipsUnfetchableCandidates(t *testing.T) {
	age := 40
	provider := &fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{
			10: {ID: 10, Age: &age},
			// 11 is missing: fetch fails, candidate is skipped
		},
		edges: map[int64]*snapshot.FollowEdges{
			1: {Followers: []int64{10, 11}},
		},
	}

	builder := NewBuilder(provider, relationship.NewResolver(provider))

	cond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(30))
	require.NoError(t, err)
	rule := &Rule{Conditions: []Condition{cond}, IsActive: true}

	members, err := builder.Build(context.Background(), 1, rule)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, members)
}

func TestAddingConditionNeverGrowsAudience(t *testing.T) {
	provider := &fakeProvider{
		profiles: map[int64]*snapshot.UserProfile{},
		edges: map[int64]*snapshot.FollowEdges{
			1: {Followers: []int64{10, 11, 12, 13}},
		},
	}
	for i, age := range []int{22, 28, 35, 41} {
		id := int64(10 + i)
		a := age
		provider.profiles[id] = &snapshot.UserProfile{
			ID: id, Age: &a, IsVerified: i%2 == 0,
		}
	}

	builder := NewBuilder(provider, relationship.NewResolver(provider))
	ctx := context.Background()

	ageCond, err := NewCondition(ConditionAge, OpGreaterThan, NumberValue(25))
	require.NoError(t, err)
	verifiedCond, err := NewCondition(ConditionVerified, OpEquals, TextValue("true"))
	require.NoError(t, err)

	before, err := builder.Build(ctx, 1, &Rule{Conditions: []Condition{ageCond}})
	require.NoError(t, err)

	after, err := builder.Build(ctx, 1, &Rule{Conditions: []Condition{ageCond, verifiedCond}})
	require.NoError(t, err)

	assert.Subset(t, before, after, "narrowed audience must be a subset")
	assert.LessOrEqual(t, len(after), len(before))
}

func TestUnionIDs(t *testing.T) {
	union := unionIDs([]int64{3, 1, 2}, []int64{2, 4})
	assert.Equal(t, []int64{1, 2, 3, 4}, union)
}
