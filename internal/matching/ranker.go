package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

// Ranker orders scored candidates and re-weights them so one page of
// results does not fill up with near-duplicates from the same city, age
// bracket and interest category. All tracker state is scoped to a single
// Rank call; concurrent rankings are independent.
type Ranker struct {
	scorer         *Scorer
	scoreThreshold float64 // adjusted score needed once the floor is met
	minResults     int     // floor guarantee against an empty result set
}

func NewRanker(scorer *Scorer, scoreThreshold float64, minResults int) *Ranker {
	return &Ranker{
		scorer:         scorer,
		scoreThreshold: scoreThreshold,
		minResults:     minResults,
	}
}

// Rank filters, scores, sorts and diversifies the candidate pool for one
// requester. The caller truncates the result to its page size.
func (r *Ranker) Rank(user *snapshot.DatingProfile, candidates []*snapshot.DatingProfile, swipedIDs map[int64]bool) []MatchScore {
	eligible := make([]*snapshot.DatingProfile, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == user.ID || swipedIDs[candidate.ID] {
			continue
		}
		if !ageEligible(candidate.Age, user.Preferences) {
			continue
		}
		eligible = append(eligible, candidate)
	}

	scored := make([]MatchScore, 0, len(eligible))
	profiles := make(map[int64]*snapshot.DatingProfile, len(eligible))
	for _, candidate := range eligible {
		scored = append(scored, r.scorer.Score(user, candidate))
		profiles[candidate.ID] = candidate
	}

	// Highest raw score first; candidate id breaks ties so results stay
	// reproducible
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Overall != scored[j].Overall {
			return scored[i].Overall > scored[j].Overall
		}
		return scored[i].CandidateID < scored[j].CandidateID
	})

	seenLocations := make(map[string]bool)
	seenBrackets := make(map[int]bool)
	seenCategories := make(map[string]bool)

	accepted := make([]MatchScore, 0, len(scored))
	for _, score := range scored {
		candidate := profiles[score.CandidateID]

		locKey := locationKey(candidate.Location)
		bracket := ageBracket(candidate.Age)
		category := r.scorer.PrimaryCategory(candidate.Interests)

		// Penalties stack additively and scale the score down, they are
		// never subtracted from it
		penalty := 0.0
		if locKey != "" && seenLocations[locKey] {
			penalty += 0.10
		}
		if bracket >= 0 && seenBrackets[bracket] {
			penalty += 0.05
		}
		if category != "" && seenCategories[category] {
			penalty += 0.10
		}

		adjusted := score.Overall * (1 - penalty)

		// The floor guarantee admits low scorers rather than returning an
		// empty page when diversity penalties bite too hard
		if adjusted <= r.scoreThreshold && len(accepted) >= r.minResults {
			continue
		}

		if locKey != "" {
			seenLocations[locKey] = true
		}
		if bracket >= 0 {
			seenBrackets[bracket] = true
		}
		if category != "" {
			seenCategories[category] = true
		}

		score.Overall = adjusted
		accepted = append(accepted, score)
	}

	// Adjusted score determines the final order
	sort.SliceStable(accepted, func(i, j int) bool {
		if accepted[i].Overall != accepted[j].Overall {
			return accepted[i].Overall > accepted[j].Overall
		}
		return accepted[i].CandidateID < accepted[j].CandidateID
	})

	return accepted
}

func locationKey(loc *snapshot.Location) string {
	if loc == nil || (loc.City == "" && loc.Country == "") {
		return ""
	}
	return strings.ToLower(fmt.Sprintf("%s|%s", loc.City, loc.Country))
}

// ageEligible applies the requester's stated age window to a candidate.
// A requester with no declared window gets no age filter, unlike the
// scorer's mutuality bonus where an unstated window simply earns nothing.
func ageEligible(age *int, prefs snapshot.Preferences) bool {
	if prefs.AgeMin == 0 && prefs.AgeMax == 0 {
		return true
	}
	return ageWithinPreferences(age, prefs)
}

// ageBracket buckets ages into 5-year spans; -1 means unknown.
func ageBracket(age *int) int {
	if age == nil {
		return -1
	}
	return *age / 5
}
