package matching

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

var (
	ErrProfileNotFound = errors.New("dating profile not found")
	ErrCannotMatchSelf = errors.New("cannot score compatibility with yourself")
)

type Service interface {
	// ScoreCandidates scores, ranks and diversifies the requester's
	// candidate pool, returning at most limit results.
	ScoreCandidates(ctx context.Context, userID int64, limit int) ([]MatchScore, error)

	// ScorePair computes the compatibility between two specific users,
	// used for the "compatibility check" surface.
	ScorePair(ctx context.Context, userID, candidateID int64) (*MatchScore, error)
}

type service struct {
	repo      Repository
	provider  snapshot.Provider
	scorer    *Scorer
	ranker    *Ranker
	poolLimit int
	minAge    int
	maxAge    int
}

func NewService(repo Repository, provider snapshot.Provider, scorer *Scorer, ranker *Ranker, poolLimit, minAge, maxAge int) Service {
	return &service{
		repo:      repo,
		provider:  provider,
		scorer:    scorer,
		ranker:    ranker,
		poolLimit: poolLimit,
		minAge:    minAge,
		maxAge:    maxAge,
	}
}

func (s *service) ScoreCandidates(ctx context.Context, userID int64, limit int) ([]MatchScore, error) {
	user, err := s.provider.GetDatingProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, snapshot.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	// The declared age window is clamped to the platform bounds; an unset
	// window falls back to them entirely
	ageMin := user.Preferences.AgeMin
	if ageMin < s.minAge {
		ageMin = s.minAge
	}
	ageMax := user.Preferences.AgeMax
	if ageMax == 0 || ageMax > s.maxAge {
		ageMax = s.maxAge
	}

	candidateIDs, err := s.repo.GetCandidateIDs(ctx, userID, ageMin, ageMax, s.poolLimit)
	if err != nil {
		return nil, err
	}

	swipedIDs, err := s.provider.GetSwipedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	swiped := make(map[int64]bool, len(swipedIDs))
	for _, id := range swipedIDs {
		swiped[id] = true
	}

	candidates := s.fetchCandidateProfiles(ctx, candidateIDs)

	ranked := s.ranker.Rank(user, candidates, swiped)
	RecordRanking(len(ranked))

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

// fetchCandidateProfiles loads dating profiles concurrently. The lookups
// are read-only and order-independent, so they fan out; a failure on one
// candidate drops that candidate and never aborts the ranking pass.
func (s *service) fetchCandidateProfiles(ctx context.Context, ids []int64) []*snapshot.DatingProfile {
	profiles := make([]*snapshot.DatingProfile, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()

			profile, err := s.provider.GetDatingProfile(ctx, id)
			if err != nil {
				log.Printf("matching: skipping candidate %d: %v", id, err)
				RecordCandidateSkipped()
				return
			}
			profiles[i] = profile
		}(i, id)
	}
	wg.Wait()

	// Compact, preserving the stable id order from the pool query
	out := make([]*snapshot.DatingProfile, 0, len(ids))
	for _, profile := range profiles {
		if profile != nil {
			out = append(out, profile)
		}
	}

	return out
}

func (s *service) ScorePair(ctx context.Context, userID, candidateID int64) (*MatchScore, error) {
	if userID == candidateID {
		return nil, ErrCannotMatchSelf
	}

	user, err := s.provider.GetDatingProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, snapshot.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	candidate, err := s.provider.GetDatingProfile(ctx, candidateID)
	if err != nil {
		if errors.Is(err, snapshot.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	score := s.scorer.Score(user, candidate)
	return &score, nil
}
