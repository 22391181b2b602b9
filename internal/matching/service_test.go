package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

type fakeRepository struct {
	candidateIDs []int64
	err          error
}

func (f *fakeRepository) GetCandidateIDs(ctx context.Context, userID int64, ageMin, ageMax, limit int) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidateIDs, nil
}

type fakeSnapshotProvider struct {
	datingProfiles map[int64]*snapshot.DatingProfile
	swiped         map[int64][]int64
}

func (f *fakeSnapshotProvider) GetProfile(ctx context.Context, userID int64) (*snapshot.UserProfile, error) {
	return nil, snapshot.ErrProfileNotFound
}

func (f *fakeSnapshotProvider) GetDatingProfile(ctx context.Context, userID int64) (*snapshot.DatingProfile, error) {
	if profile, ok := f.datingProfiles[userID]; ok {
		return profile, nil
	}
	return nil, snapshot.ErrProfileNotFound
}

func (f *fakeSnapshotProvider) GetFollowEdges(ctx context.Context, userID int64) (*snapshot.FollowEdges, error) {
	return &snapshot.FollowEdges{}, nil
}

func (f *fakeSnapshotProvider) IsBlocked(ctx context.Context, blockerID, blockedID int64) (bool, error) {
	return false, nil
}

func (f *fakeSnapshotProvider) GetSwipeStats(ctx context.Context, userID int64) (*snapshot.SwipeStats, error) {
	return &snapshot.SwipeStats{}, nil
}

func (f *fakeSnapshotProvider) GetSwipedUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	return f.swiped[userID], nil
}

func newMatchingService(repo Repository, provider snapshot.Provider) Service {
	scorer, _ := NewScorer(DefaultScorerConfig())
	ranker := NewRanker(scorer, 0.0, 0)
	return NewService(repo, provider, scorer, ranker, 100, 18, 100)
}

func TestScoreCandidates(t *testing.T) {
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{
			1: testProfile(1, 30),
			2: testProfile(2, 28),
			3: testProfile(3, 32),
		},
	}
	repo := &fakeRepository{candidateIDs: []int64{2, 3}}
	service := newMatchingService(repo, provider)

	matches, err := service.ScoreCandidates(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	ids := []int64{matches[0].CandidateID, matches[1].CandidateID}
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}

func TestScoreCandidatesExcludesSwiped(t *testing.T) {
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{
			1: testProfile(1, 30),
			2: testProfile(2, 28),
			3: testProfile(3, 32),
		},
		swiped: map[int64][]int64{1: {2}},
	}
	repo := &fakeRepository{candidateIDs: []int64{2, 3}}
	service := newMatchingService(repo, provider)

	matches, err := service.ScoreCandidates(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(3), matches[0].CandidateID)
}

func TestScoreCandidatesSkipsUnfetchableProfiles(t *testing.T) {
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{
			1: testProfile(1, 30),
			3: testProfile(3, 32),
			// candidate 2 has no profile and must be dropped, not fail the call
		},
	}
	repo := &fakeRepository{candidateIDs: []int64{2, 3}}
	service := newMatchingService(repo, provider)

	matches, err := service.ScoreCandidates(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(3), matches[0].CandidateID)
}

func TestScoreCandidatesWithoutAgePreferences(t *testing.T) {
	user := testProfile(1, 30)
	user.Preferences = snapshot.Preferences{}
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{
			1: user,
			2: testProfile(2, 28),
			3: testProfile(3, 45),
		},
	}
	service := newMatchingService(&fakeRepository{candidateIDs: []int64{2, 3}}, provider)

	matches, err := service.ScoreCandidates(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestScoreCandidatesRespectsLimit(t *testing.T) {
	profiles := map[int64]*snapshot.DatingProfile{1: testProfile(1, 30)}
	var ids []int64
	for i := int64(2); i <= 9; i++ {
		profiles[i] = testProfile(i, 25+int(i))
		ids = append(ids, i)
	}

	service := newMatchingService(
		&fakeRepository{candidateIDs: ids},
		&fakeSnapshotProvider{datingProfiles: profiles},
	)

	matches, err := service.ScoreCandidates(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestScoreCandidatesUnknownUser(t *testing.T) {
	service := newMatchingService(&fakeRepository{}, &fakeSnapshotProvider{})

	_, err := service.ScoreCandidates(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestScoreCandidatesRepositoryError(t *testing.T) {
	dbErr := errors.New("connection reset")
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{1: testProfile(1, 30)},
	}
	service := newMatchingService(&fakeRepository{err: dbErr}, provider)

	_, err := service.ScoreCandidates(context.Background(), 1, 10)
	assert.ErrorIs(t, err, dbErr)
}

func TestScorePair(t *testing.T) {
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{
			1: testProfile(1, 30),
			2: testProfile(2, 28),
		},
	}
	service := newMatchingService(&fakeRepository{}, provider)

	score, err := service.ScorePair(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), score.CandidateID)
}

func TestScorePairSelf(t *testing.T) {
	service := newMatchingService(&fakeRepository{}, &fakeSnapshotProvider{})

	_, err := service.ScorePair(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrCannotMatchSelf)
}

func TestScorePairUnknownCandidate(t *testing.T) {
	provider := &fakeSnapshotProvider{
		datingProfiles: map[int64]*snapshot.DatingProfile{1: testProfile(1, 30)},
	}
	service := newMatchingService(&fakeRepository{}, provider)

	_, err := service.ScorePair(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
