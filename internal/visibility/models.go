package visibility

// Level is the basic visibility tier of a piece of content.
type Level string

const (
	LevelPublic        Level = "public"
	LevelFriends       Level = "friends"
	LevelCloseFriends  Level = "close_friends"
	LevelFollowers     Level = "followers"
	LevelMutualFriends Level = "mutual_friends"
	LevelCustomList    Level = "custom_list"
	LevelPrivate       Level = "private"
)

// IsValid reports whether the level is one of the known tiers.
func (l Level) IsValid() bool {
	switch l {
	case LevelPublic, LevelFriends, LevelCloseFriends, LevelFollowers,
		LevelMutualFriends, LevelCustomList, LevelPrivate:
		return true
	}
	return false
}

// Reason strings returned on denied decisions. These surface directly in
// API responses, so they read as sentences.
const (
	ReasonBlocked           = "blocked"
	ReasonPrivate           = "This content is private"
	ReasonFriendsOnly       = "Only friends can view this content"
	ReasonCloseFriendsOnly  = "Only close friends can view this content"
	ReasonFollowersOnly     = "Only followers can view this content"
	ReasonFollowingOnly     = "Only people the owner follows can view this content"
	ReasonMutualFriendsOnly = "Only mutual friends can view this content"
	ReasonExcluded          = "explicitly excluded"
	ReasonNotInAudience     = "not in target audience"
	ReasonLocationFiltered  = "location not allowed"
	ReasonAgeFiltered       = "outside allowed age range"
	ReasonUnverified        = "verified users only"
	ReasonInterestFiltered  = "interests do not match"
	ReasonNotEnoughMutuals  = "not enough mutual friends"
	ReasonSystemError       = "system error"
)

// LocationFilter restricts viewers by country/city. Exclusions are checked
// before allow-lists and are absolute.
type LocationFilter struct {
	Countries        []string `json:"countries,omitempty"`
	Cities           []string `json:"cities,omitempty"`
	ExcludeCountries []string `json:"exclude_countries,omitempty"`
	ExcludeCities    []string `json:"exclude_cities,omitempty"`
}

// DemographicFilter restricts viewers by age and verification.
type DemographicFilter struct {
	AgeMin       *int `json:"age_min,omitempty"`
	AgeMax       *int `json:"age_max,omitempty"`
	VerifiedOnly bool `json:"verified_only,omitempty"`
}

// InterestFilter restricts viewers by interest tags. A viewer must carry at
// least one included interest (when any are listed) and none of the
// excluded ones.
type InterestFilter struct {
	IncludeInterests []string `json:"include_interests,omitempty"`
	ExcludeInterests []string `json:"exclude_interests,omitempty"`
}

// RelationshipFilter restricts viewers by their relation to the owner.
type RelationshipFilter struct {
	MinimumMutualFriends int  `json:"minimum_mutual_friends,omitempty"`
	FollowersOnly        bool `json:"followers_only,omitempty"`
	FollowingOnly        bool `json:"following_only,omitempty"`
}

// Policy is the full rule set controlling who may view one piece of
// content. It round-trips losslessly through JSON for persistence.
type Policy struct {
	Level             Level               `json:"visibility_level"`
	CustomAudienceIDs []string            `json:"custom_audience_ids,omitempty"`
	ExcludedUserIDs   []int64             `json:"excluded_user_ids,omitempty"`
	IncludedUserIDs   []int64             `json:"included_user_ids,omitempty"`
	Location          *LocationFilter     `json:"location_filters,omitempty"`
	Demographic       *DemographicFilter  `json:"demographic_filters,omitempty"`
	Interest          *InterestFilter     `json:"interest_filters,omitempty"`
	Relationship      *RelationshipFilter `json:"relationship_filters,omitempty"`
}

// Decision is the outcome of a visibility check. Reason is empty when the
// view is allowed.
type Decision struct {
	CanView bool   `json:"can_view"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{CanView: true}
}

func deny(reason string) Decision {
	return Decision{CanView: false, Reason: reason}
}
