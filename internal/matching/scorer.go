package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

// Scorer computes compatibility between two dating profiles. It is pure
// and stateless: identical inputs always produce identical scores, and
// concurrent Score calls are independent.
type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the four sub-scores and their weighted blend. Reason
// strings accumulate in fixed sub-score order (compatibility, interests,
// activity, location) so they display consistently.
func (s *Scorer) Score(user, candidate *snapshot.DatingProfile) MatchScore {
	score := MatchScore{CandidateID: candidate.ID}

	var reasons []string

	score.Compatibility, reasons = s.compatibilityScore(user, candidate)
	score.Reasons = append(score.Reasons, reasons...)

	score.Interests, reasons = s.interestsScore(user, candidate)
	score.Reasons = append(score.Reasons, reasons...)

	score.Activity, reasons = s.activityScore(user, candidate)
	score.Reasons = append(score.Reasons, reasons...)

	score.Location, reasons = s.locationScore(user, candidate)
	score.Reasons = append(score.Reasons, reasons...)

	w := s.cfg.Weights
	score.Overall = score.Compatibility*w.Compatibility +
		score.Interests*w.Interests +
		score.Activity*w.Activity +
		score.Location*w.Location

	RecordCompatibilityScore(score.Overall)
	return score
}

// compatibilityScore blends age-preference mutuality, bio overlap, photo
// richness and verification symmetry.
func (s *Scorer) compatibilityScore(user, candidate *snapshot.DatingProfile) (float64, []string) {
	var score float64
	var reasons []string

	userFits := ageWithinPreferences(candidate.Age, user.Preferences)
	candidateFits := ageWithinPreferences(user.Age, candidate.Preferences)
	switch {
	case userFits && candidateFits:
		score += 1.0
		reasons = append(reasons, "You're both in each other's preferred age range")
	case userFits || candidateFits:
		score += 0.5
	}

	sharedWords := sharedBioWords(user.Bio, candidate.Bio)
	if sharedWords > 0 {
		score += math.Min(0.3, float64(sharedWords)*0.1)
		reasons = append(reasons, "Your bios touch on similar things")
	}

	if len(user.Photos) >= 3 && len(candidate.Photos) >= 3 {
		score += 0.2
	}

	switch {
	case user.IsVerified && candidate.IsVerified:
		score += 0.3
		reasons = append(reasons, "You're both verified")
	case user.IsVerified || candidate.IsVerified:
		score += 0.15
	}

	return clamp01(score), reasons
}

// interestsScore rewards direct tag overlap plus broader category overlap
// via the configured keyword map.
func (s *Scorer) interestsScore(user, candidate *snapshot.DatingProfile) (float64, []string) {
	var score float64
	var reasons []string

	shared := sharedInterests(user.Interests, candidate.Interests)
	if shared > 0 {
		score += math.Min(0.6, float64(shared)*0.2)
		reasons = append(reasons, fmt.Sprintf("You share %d interests", shared))
	}

	sharedCats := s.sharedCategories(user.Interests, candidate.Interests)
	if sharedCats > 0 {
		score += math.Min(0.4, float64(sharedCats)*0.1)
		reasons = append(reasons, "You're into the same kinds of things")
	}

	return clamp01(score), reasons
}

// activityScore rewards mutual recency and similar swipe behavior.
func (s *Scorer) activityScore(user, candidate *snapshot.DatingProfile) (float64, []string) {
	var score float64
	var reasons []string

	userIdle := timeSince(user.LastActive)
	candidateIdle := timeSince(candidate.LastActive)
	oneDay := 24.0
	threeDays := 72.0

	// Only the higher recency bonus applies
	switch {
	case userIdle <= oneDay && candidateIdle <= oneDay:
		score += 0.4
		reasons = append(reasons, "Both active in the last day")
	case userIdle <= threeDays && candidateIdle <= threeDays:
		score += 0.2
		reasons = append(reasons, "Both active recently")
	}

	userStats := user.SwipeStats
	candidateStats := candidate.SwipeStats
	if userStats != nil && candidateStats != nil {
		if hasSwiped(userStats) && hasSwiped(candidateStats) {
			diff := math.Abs(userStats.Selectivity() - candidateStats.Selectivity())
			if diff < 0.2 {
				score += 0.3
				reasons = append(reasons, "You're similarly selective")
			}
		}

		if userStats.MatchRate() > 0.1 && candidateStats.MatchRate() > 0.1 {
			score += 0.3
			reasons = append(reasons, "You both match often with people you like")
		}
	}

	return clamp01(score), reasons
}

// locationScore requires the candidate within the user's stated max
// distance for any real base score; outside it the score floors at 0.1.
func (s *Scorer) locationScore(user, candidate *snapshot.DatingProfile) (float64, []string) {
	var score float64
	var reasons []string

	userLoc := user.Location
	candidateLoc := candidate.Location

	if hasCoordinates(userLoc) && hasCoordinates(candidateLoc) {
		distance := Haversine(
			*userLoc.Latitude, *userLoc.Longitude,
			*candidateLoc.Latitude, *candidateLoc.Longitude,
		)

		maxDistance := user.Preferences.MaxDistanceKm
		if maxDistance > 0 && distance > maxDistance {
			score = 0.1
		} else {
			switch {
			case distance <= 5:
				score = 1.0
				reasons = append(reasons, "Less than 5km apart")
			case distance <= 20:
				score = 0.8
				reasons = append(reasons, "Less than 20km apart")
			case distance <= 50:
				score = 0.6
			default:
				score = 0.3
			}
		}
	}

	if userLoc != nil && candidateLoc != nil {
		if userLoc.City != "" && strings.EqualFold(userLoc.City, candidateLoc.City) {
			score += 0.2
			reasons = append(reasons, "Same city")
		}
		if userLoc.Country != "" && strings.EqualFold(userLoc.Country, candidateLoc.Country) {
			score += 0.1
		}
	}

	return clamp01(score), reasons
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371 // km

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// PrimaryCategory returns the first configured category matching any of
// the interests, or "" when none match. The ranker uses it to spot
// near-duplicate candidates.
func (s *Scorer) PrimaryCategory(interests []string) string {
	best := ""
	for category, keywords := range s.cfg.Categories {
		for _, interest := range interests {
			if containsKeyword(keywords, interest) {
				// Pick deterministically so ranking stays reproducible
				if best == "" || category < best {
					best = category
				}
			}
		}
	}
	return best
}

func (s *Scorer) sharedCategories(a, b []string) int {
	count := 0
	for _, keywords := range s.cfg.Categories {
		if interestsMatchCategory(a, keywords) && interestsMatchCategory(b, keywords) {
			count++
		}
	}
	return count
}

func interestsMatchCategory(interests, keywords []string) bool {
	for _, interest := range interests {
		if containsKeyword(keywords, interest) {
			return true
		}
	}
	return false
}

func containsKeyword(keywords []string, interest string) bool {
	lowered := strings.ToLower(interest)
	for _, keyword := range keywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func ageWithinPreferences(age *int, prefs snapshot.Preferences) bool {
	if age == nil {
		return false
	}
	if prefs.AgeMin == 0 && prefs.AgeMax == 0 {
		return false
	}
	return *age >= prefs.AgeMin && *age <= prefs.AgeMax
}

// sharedBioWords counts distinct words longer than 3 characters that
// appear in both bios.
func sharedBioWords(a, b string) int {
	wordsA := bioWordSet(a)
	if len(wordsA) == 0 {
		return 0
	}

	count := 0
	for _, word := range strings.Fields(strings.ToLower(b)) {
		if len(word) > 3 && wordsA[word] {
			count++
			wordsA[word] = false
		}
	}
	return count
}

func bioWordSet(bio string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(bio)) {
		if len(word) > 3 {
			words[word] = true
		}
	}
	return words
}

func sharedInterests(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, interest := range a {
		set[strings.ToLower(interest)] = true
	}

	count := 0
	for _, interest := range b {
		lowered := strings.ToLower(interest)
		if set[lowered] {
			count++
			set[lowered] = false
		}
	}
	return count
}

// timeSince returns hours elapsed since t.
func timeSince(t time.Time) float64 {
	return time.Since(t).Hours()
}

func hasSwiped(stats *snapshot.SwipeStats) bool {
	return stats.TotalLikes+stats.TotalPasses > 0
}

func hasCoordinates(loc *snapshot.Location) bool {
	return loc != nil && loc.Latitude != nil && loc.Longitude != nil
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0, v))
}
