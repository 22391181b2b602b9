package matching

import (
	"fmt"
)

// MatchScore is the engine's verdict on one candidate: four sub-scores in
// [0,1], a weighted overall score, and the human-readable reasons behind it.
type MatchScore struct {
	CandidateID   int64    `json:"candidate_id"`
	Compatibility float64  `json:"compatibility"`
	Interests     float64  `json:"interests"`
	Activity      float64  `json:"activity"`
	Location      float64  `json:"location"`
	Overall       float64  `json:"overall"`
	Reasons       []string `json:"reasons"`
}

// Weights controls how the four sub-scores blend into the overall score.
type Weights struct {
	Compatibility float64 `json:"compatibility"`
	Interests     float64 `json:"interests"`
	Activity      float64 `json:"activity"`
	Location      float64 `json:"location"`
}

// Validate rejects weight sets that do not sum to exactly 1.0.
func (w Weights) Validate() error {
	sum := w.Compatibility + w.Interests + w.Activity + w.Location
	if sum != 1.0 {
		return fmt.Errorf("score weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// DefaultWeights returns the production blend.
func DefaultWeights() Weights {
	return Weights{
		Compatibility: 0.35,
		Interests:     0.25,
		Activity:      0.20,
		Location:      0.20,
	}
}

// ScorerConfig is the scorer's full tuning surface: the blend weights and
// the keyword-to-category map used for broad interest matching. Injected
// at construction so deployments can tune without a rebuild.
type ScorerConfig struct {
	Weights    Weights
	Categories map[string][]string
}

// DefaultCategories maps broad interest categories to the keywords that
// signal them in a user's interest tags.
func DefaultCategories() map[string][]string {
	return map[string][]string{
		"fitness":       {"gym", "fitness", "yoga", "running", "cycling", "crossfit", "workout"},
		"music":         {"music", "concerts", "guitar", "piano", "singing", "dj", "vinyl"},
		"travel":        {"travel", "backpacking", "adventure", "roadtrip", "exploring"},
		"food":          {"cooking", "foodie", "baking", "wine", "coffee", "restaurants"},
		"arts":          {"art", "painting", "photography", "drawing", "design", "theater"},
		"tech":          {"coding", "tech", "gaming", "programming", "gadgets", "startups"},
		"reading":       {"reading", "books", "writing", "poetry", "literature"},
		"outdoor":       {"hiking", "camping", "fishing", "climbing", "surfing", "skiing"},
		"entertainment": {"movies", "netflix", "anime", "comedy", "series", "podcasts"},
	}
}

// DefaultScorerConfig bundles the default weights and category map.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:    DefaultWeights(),
		Categories: DefaultCategories(),
	}
}
