package visibility

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sparka-app/sparka-backend/internal/relationship"
	"github.com/sparka-app/sparka-backend/internal/snapshot"
)

var (
	ErrRuleNotFound = errors.New("audience rule not found")
	ErrRuleInactive = errors.New("audience rule is inactive")
	ErrNotRuleOwner = errors.New("unauthorized to modify this rule")
)

type Service interface {
	// Visibility decisions
	CheckVisibility(ctx context.Context, viewerID, ownerID, contentID int64, contentType string, policy *Policy) Decision

	// Audience rules
	CreateRule(ctx context.Context, ownerID int64, name string, conditions []Condition) (*Rule, error)
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	GetOwnerRules(ctx context.Context, ownerID int64) ([]*Rule, error)
	UpdateRule(ctx context.Context, ownerID int64, rule *Rule) error
	DeleteRule(ctx context.Context, ruleID string, ownerID int64) error

	// Audience computation
	BuildAudience(ctx context.Context, ownerID int64, ruleID string) ([]int64, error)
	PreviewAudience(ctx context.Context, ownerID int64, rule *Rule) (*AudiencePreview, error)

	AudienceMembership
}

// AudiencePreview is the answer to a "how big would this audience be"
// query. Nothing is persisted for a preview.
type AudiencePreview struct {
	MemberCount  int     `json:"member_count"`
	MemberSample []int64 `json:"member_sample"`
}

type service struct {
	repo       Repository
	builder    *Builder
	cache      *AudienceCache
	evaluator  *Evaluator
	sampleSize int
}

func NewService(repo Repository, provider snapshot.Provider, rel *relationship.Resolver, cache *AudienceCache, sampleSize int) Service {
	s := &service{
		repo:       repo,
		builder:    NewBuilder(provider, rel),
		cache:      cache,
		sampleSize: sampleSize,
	}
	// The evaluator resolves custom-audience membership back through the
	// service so it benefits from the Redis membership cache
	s.evaluator = NewEvaluator(provider, rel, s)
	return s
}

func (s *service) CheckVisibility(ctx context.Context, viewerID, ownerID, contentID int64, contentType string, policy *Policy) Decision {
	if policy == nil {
		policy = &Policy{Level: LevelPublic}
	}

	decision := s.evaluator.CanView(ctx, viewerID, ownerID, contentID, contentType, policy)
	RecordDecision(decision)
	return decision
}

func (s *service) CreateRule(ctx context.Context, ownerID int64, name string, conditions []Condition) (*Rule, error) {
	rule := &Rule{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		Conditions: conditions,
		IsActive:   true,
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *service) GetRule(ctx context.Context, ruleID string) (*Rule, error) {
	return s.repo.GetRule(ctx, ruleID)
}

func (s *service) GetOwnerRules(ctx context.Context, ownerID int64) ([]*Rule, error) {
	return s.repo.GetOwnerRules(ctx, ownerID)
}

func (s *service) UpdateRule(ctx context.Context, ownerID int64, rule *Rule) error {
	existing, err := s.repo.GetRule(ctx, rule.ID)
	if err != nil {
		return err
	}
	if existing.OwnerID != ownerID {
		return ErrNotRuleOwner
	}

	if err := rule.Validate(); err != nil {
		return err
	}

	rule.OwnerID = ownerID
	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return err
	}

	// Membership may have changed with the conditions
	s.cache.Invalidate(ctx, rule.ID)
	return nil
}

func (s *service) DeleteRule(ctx context.Context, ruleID string, ownerID int64) error {
	if err := s.repo.DeleteRule(ctx, ruleID, ownerID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, ruleID)
	return nil
}

// BuildAudience computes membership for a saved rule, persists an
// auditable snapshot, and refreshes the membership cache. Persisting the
// snapshot is this explicit step; preview traffic never reaches it.
func (s *service) BuildAudience(ctx context.Context, ownerID int64, ruleID string) ([]int64, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.OwnerID != ownerID {
		return nil, ErrNotRuleOwner
	}
	if !rule.IsActive {
		return nil, ErrRuleInactive
	}

	members, err := s.builder.Build(ctx, ownerID, rule)
	if err != nil {
		return nil, err
	}

	record := &AudienceSnapshot{
		CorrelationID: uuid.NewString(),
		RuleID:        rule.ID,
		OwnerID:       ownerID,
		MemberCount:   len(members),
		MemberSample:  sampleIDs(members, s.sampleSize),
	}
	if err := s.repo.SaveAudienceSnapshot(ctx, record); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, rule.ID, members)
	return members, nil
}

// PreviewAudience sizes an ephemeral, unsaved rule through the same
// builder path used for saved audiences.
func (s *service) PreviewAudience(ctx context.Context, ownerID int64, rule *Rule) (*AudiencePreview, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	members, err := s.builder.Build(ctx, ownerID, rule)
	if err != nil {
		return nil, err
	}

	return &AudiencePreview{
		MemberCount:  len(members),
		MemberSample: sampleIDs(members, s.sampleSize),
	}, nil
}

// IsMember implements AudienceMembership for the evaluator. Cached
// membership is used when fresh; otherwise the audience is rebuilt against
// the rule owner's current follow graph.
func (s *service) IsMember(ctx context.Context, ruleID string, viewerID int64) (bool, error) {
	if members, ok := s.cache.Get(ctx, ruleID); ok {
		return containsInt64(members, viewerID), nil
	}

	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		// A policy referencing a deleted rule admits nobody through it
		if errors.Is(err, ErrRuleNotFound) {
			return false, nil
		}
		return false, err
	}
	if !rule.IsActive {
		return false, nil
	}

	members, err := s.builder.Build(ctx, rule.OwnerID, rule)
	if err != nil {
		return false, err
	}

	s.cache.Set(ctx, ruleID, members)
	return containsInt64(members, viewerID), nil
}

func sampleIDs(ids []int64, max int) []int64 {
	if len(ids) <= max {
		return ids
	}
	return ids[:max]
}
