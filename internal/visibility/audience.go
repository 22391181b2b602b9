package visibility

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

var (
	ErrUnknownConditionType = errors.New("unknown condition type")
	ErrUnsupportedOperator  = errors.New("operator not supported for condition type")
	ErrInvalidValueShape    = errors.New("condition value does not match operator")
)

// ConditionType names the profile attribute a condition inspects.
type ConditionType string

const (
	ConditionLocation      ConditionType = "location"
	ConditionAge           ConditionType = "age"
	ConditionInterests     ConditionType = "interests"
	ConditionFollowers     ConditionType = "followers"
	ConditionMutualFriends ConditionType = "mutual_friends"
	ConditionVerified      ConditionType = "verified"
	ConditionCustomList    ConditionType = "custom_list"
)

// Operator is the comparison a condition applies.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// ValueKind is the shape a condition value must take for a given
// (type, operator) pair.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
	KindList
)

// ConditionValue is a tagged union: exactly one field is set, and which one
// is fixed by the (type, operator) pair at construction time. This replaces
// the untyped values the rules used to carry.
type ConditionValue struct {
	Number *float64 `json:"number,omitempty"`
	Text   *string  `json:"text,omitempty"`
	List   []string `json:"list,omitempty"`
}

// NumberValue builds a numeric condition value.
func NumberValue(n float64) ConditionValue {
	return ConditionValue{Number: &n}
}

// TextValue builds a string condition value.
func TextValue(s string) ConditionValue {
	return ConditionValue{Text: &s}
}

// ListValue builds a list condition value.
func ListValue(items ...string) ConditionValue {
	return ConditionValue{List: items}
}

func (v ConditionValue) kind() (ValueKind, bool) {
	switch {
	case v.Number != nil && v.Text == nil && v.List == nil:
		return KindNumber, true
	case v.Text != nil && v.Number == nil && v.List == nil:
		return KindText, true
	case v.List != nil && v.Number == nil && v.Text == nil:
		return KindList, true
	}
	return 0, false
}

// Condition is one attribute check inside an audience rule.
type Condition struct {
	Type     ConditionType  `json:"type"`
	Operator Operator       `json:"operator"`
	Value    ConditionValue `json:"value"`
}

// NewCondition builds a condition, rejecting unsupported (type, operator)
// pairs and mis-shaped values up front rather than at evaluation time.
func NewCondition(t ConditionType, op Operator, value ConditionValue) (Condition, error) {
	spec, ok := conditionTable[condKey{t, op}]
	if !ok {
		if _, known := supportedTypes[t]; !known {
			return Condition{}, ErrUnknownConditionType
		}
		return Condition{}, ErrUnsupportedOperator
	}

	kind, ok := value.kind()
	if !ok || kind != spec.kind {
		return Condition{}, ErrInvalidValueShape
	}

	return Condition{Type: t, Operator: op, Value: value}, nil
}

// Validate checks a deserialized condition against the same table used by
// NewCondition.
func (c Condition) Validate() error {
	_, err := NewCondition(c.Type, c.Operator, c.Value)
	return err
}

// Rule is a named, reusable set of conditions that defines a dynamic
// audience. A user matches the rule only when every condition holds.
type Rule struct {
	ID         string      `json:"id" db:"id"`
	OwnerID    int64       `json:"owner_id" db:"owner_id"`
	Name       string      `json:"name" db:"name"`
	Conditions []Condition `json:"conditions"`
	IsActive   bool        `json:"is_active" db:"is_active"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Validate checks every condition in the rule.
func (r *Rule) Validate() error {
	for _, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// EvalProfile is the per-candidate view a condition evaluates against.
// MutualFriends is computed relative to the rule owner; ListIDs are the
// owner's custom lists the candidate belongs to.
type EvalProfile struct {
	Profile       *snapshot.UserProfile
	MutualFriends int
	ListIDs       []string
}

// Matches reports whether the candidate satisfies every condition in the
// rule (logical AND). A condition that cannot be evaluated counts as false,
// never as an error.
func (r *Rule) Matches(candidate *EvalProfile) bool {
	if candidate == nil || candidate.Profile == nil {
		return false
	}
	for _, cond := range r.Conditions {
		if !evalCondition(cond, candidate) {
			return false
		}
	}
	return true
}

// Table-driven condition evaluation

type condKey struct {
	Type     ConditionType
	Operator Operator
}

type condSpec struct {
	kind ValueKind
	eval func(c *EvalProfile, v ConditionValue) bool
}

var supportedTypes = map[ConditionType]bool{
	ConditionLocation:      true,
	ConditionAge:           true,
	ConditionInterests:     true,
	ConditionFollowers:     true,
	ConditionMutualFriends: true,
	ConditionVerified:      true,
	ConditionCustomList:    true,
}

var conditionTable = map[condKey]condSpec{
	// location: compared against city or country, case-insensitive
	{ConditionLocation, OpEquals}:    {KindText, func(c *EvalProfile, v ConditionValue) bool { return locationMatches(c, *v.Text) }},
	{ConditionLocation, OpNotEquals}: {KindText, func(c *EvalProfile, v ConditionValue) bool { return hasLocation(c) && !locationMatches(c, *v.Text) }},
	{ConditionLocation, OpIn}:        {KindList, func(c *EvalProfile, v ConditionValue) bool { return locationInList(c, v.List) }},
	{ConditionLocation, OpNotIn}:     {KindList, func(c *EvalProfile, v ConditionValue) bool { return hasLocation(c) && !locationInList(c, v.List) }},

	// age
	{ConditionAge, OpEquals}:      {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return ageCompare(c, func(a float64) bool { return a == *v.Number }) }},
	{ConditionAge, OpNotEquals}:   {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return ageCompare(c, func(a float64) bool { return a != *v.Number }) }},
	{ConditionAge, OpGreaterThan}: {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return ageCompare(c, func(a float64) bool { return a > *v.Number }) }},
	{ConditionAge, OpLessThan}:    {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return ageCompare(c, func(a float64) bool { return a < *v.Number }) }},

	// interests
	{ConditionInterests, OpContains}:    {KindText, func(c *EvalProfile, v ConditionValue) bool { return hasInterest(c, *v.Text) }},
	{ConditionInterests, OpNotContains}: {KindText, func(c *EvalProfile, v ConditionValue) bool { return !hasInterest(c, *v.Text) }},
	{ConditionInterests, OpIn}:          {KindList, func(c *EvalProfile, v ConditionValue) bool { return hasAnyInterest(c, v.List) }},
	{ConditionInterests, OpNotIn}:       {KindList, func(c *EvalProfile, v ConditionValue) bool { return !hasAnyInterest(c, v.List) }},

	// followers count
	{ConditionFollowers, OpEquals}:      {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.Profile.FollowersCount) == *v.Number }},
	{ConditionFollowers, OpNotEquals}:   {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.Profile.FollowersCount) != *v.Number }},
	{ConditionFollowers, OpGreaterThan}: {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.Profile.FollowersCount) > *v.Number }},
	{ConditionFollowers, OpLessThan}:    {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.Profile.FollowersCount) < *v.Number }},

	// mutual friends with the rule owner
	{ConditionMutualFriends, OpEquals}:      {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.MutualFriends) == *v.Number }},
	{ConditionMutualFriends, OpNotEquals}:   {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.MutualFriends) != *v.Number }},
	{ConditionMutualFriends, OpGreaterThan}: {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.MutualFriends) > *v.Number }},
	{ConditionMutualFriends, OpLessThan}:    {KindNumber, func(c *EvalProfile, v ConditionValue) bool { return float64(c.MutualFriends) < *v.Number }},

	// verification flag: value is "true"/"false"
	{ConditionVerified, OpEquals}:    {KindText, func(c *EvalProfile, v ConditionValue) bool { return boolTextMatches(c.Profile.IsVerified, *v.Text, false) }},
	{ConditionVerified, OpNotEquals}: {KindText, func(c *EvalProfile, v ConditionValue) bool { return boolTextMatches(c.Profile.IsVerified, *v.Text, true) }},

	// membership in the owner's custom lists
	{ConditionCustomList, OpEquals}:    {KindText, func(c *EvalProfile, v ConditionValue) bool { return containsString(c.ListIDs, *v.Text) }},
	{ConditionCustomList, OpNotEquals}: {KindText, func(c *EvalProfile, v ConditionValue) bool { return !containsString(c.ListIDs, *v.Text) }},
	{ConditionCustomList, OpIn}:        {KindList, func(c *EvalProfile, v ConditionValue) bool { return anyOverlap(c.ListIDs, v.List) }},
	{ConditionCustomList, OpNotIn}:     {KindList, func(c *EvalProfile, v ConditionValue) bool { return !anyOverlap(c.ListIDs, v.List) }},
}

// evalCondition evaluates one condition. Unsupported (type, operator)
// combinations and mis-shaped values evaluate to false.
func evalCondition(cond Condition, candidate *EvalProfile) bool {
	spec, ok := conditionTable[condKey{cond.Type, cond.Operator}]
	if !ok {
		return false
	}

	kind, ok := cond.Value.kind()
	if !ok || kind != spec.kind {
		return false
	}

	return spec.eval(candidate, cond.Value)
}

// Evaluation helpers

func hasLocation(c *EvalProfile) bool {
	return c.Profile.Location != nil
}

func locationMatches(c *EvalProfile, target string) bool {
	if c.Profile.Location == nil {
		return false
	}
	return strings.EqualFold(c.Profile.Location.City, target) ||
		strings.EqualFold(c.Profile.Location.Country, target)
}

func locationInList(c *EvalProfile, targets []string) bool {
	for _, target := range targets {
		if locationMatches(c, target) {
			return true
		}
	}
	return false
}

func ageCompare(c *EvalProfile, cmp func(float64) bool) bool {
	if c.Profile.Age == nil {
		return false
	}
	return cmp(float64(*c.Profile.Age))
}

func hasInterest(c *EvalProfile, target string) bool {
	for _, interest := range c.Profile.Interests {
		if strings.EqualFold(interest, target) {
			return true
		}
	}
	return false
}

func hasAnyInterest(c *EvalProfile, targets []string) bool {
	for _, target := range targets {
		if hasInterest(c, target) {
			return true
		}
	}
	return false
}

func boolTextMatches(actual bool, text string, negate bool) bool {
	expected, err := strconv.ParseBool(text)
	if err != nil {
		return false
	}
	if negate {
		return actual != expected
	}
	return actual == expected
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func anyOverlap(a, b []string) bool {
	for _, s := range b {
		if containsString(a, s) {
			return true
		}
	}
	return false
}
