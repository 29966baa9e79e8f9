package policies

import (
	"context"
	"fmt"
	"sort"
	"time"

	"voyago/pkg/cache"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service interface defines the contract for the policy registry
type Service interface {
	// Registry lookup used by the workflow; each call returns an independent
	// copy so hot reconfiguration never affects an in-flight evaluation
	GetPolicyForCategory(ctx context.Context, category string) (*Policy, error)

	// Admin management
	CreatePolicy(ctx context.Context, req PolicyRequest) (*Policy, error)
	UpdatePolicy(ctx context.Context, id uuid.UUID, req PolicyRequest) (*Policy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (*Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)
}

type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
}

// NewService creates a new policy registry instance
func NewService(repo Repository, cacheService cache.Service, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
	}
}

func policyCacheKey(category string) string {
	return "voyago:policy:" + category
}

// GetPolicyForCategory resolves the active policy for a tour category
func (s *service) GetPolicyForCategory(ctx context.Context, category string) (*Policy, error) {
	if s.cache != nil {
		var cached Policy
		err := s.cache.Get(ctx, policyCacheKey(category), &cached)
		if err == nil {
			return &cached, nil
		}
		// cache miss or unavailable falls through to the repository
	}

	policy, err := s.repo.GetByCategory(ctx, category)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		// best effort; a failed cache write never fails the lookup
		_ = s.cache.Set(ctx, policyCacheKey(category), policy, s.cacheTTL)
	}

	return policy, nil
}

// CreatePolicy creates a new policy for a category
func (s *service) CreatePolicy(ctx context.Context, req PolicyRequest) (*Policy, error) {
	if _, err := s.repo.GetByCategory(ctx, req.Category); err == nil {
		return nil, fmt.Errorf("cancellation policy already exists for category %s", req.Category)
	}

	policy, err := s.buildPolicy(req)
	if err != nil {
		return nil, fmt.Errorf("invalid policy request: %w", err)
	}

	if err := s.repo.Create(ctx, policy); err != nil {
		return nil, err
	}

	s.invalidate(ctx, req.Category)
	return policy, nil
}

// UpdatePolicy replaces an existing policy's configuration
func (s *service) UpdatePolicy(ctx context.Context, id uuid.UUID, req PolicyRequest) (*Policy, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildPolicy(req)
	if err != nil {
		return nil, fmt.Errorf("invalid policy request: %w", err)
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	for i := range updated.Tiers {
		updated.Tiers[i].PolicyID = existing.ID
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, err
	}

	// Drop both the old and new category keys; a rename must not leave a
	// stale entry behind
	s.invalidate(ctx, existing.Category)
	if updated.Category != existing.Category {
		s.invalidate(ctx, updated.Category)
	}

	return updated, nil
}

func (s *service) GetPolicy(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListPolicies(ctx context.Context) ([]Policy, error) {
	return s.repo.List(ctx)
}

func (s *service) invalidate(ctx context.Context, category string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, policyCacheKey(category))
	}
}

// buildPolicy validates the request and assembles the entity with tiers
// sorted descending by threshold
func (s *service) buildPolicy(req PolicyRequest) (*Policy, error) {
	hundred := decimal.NewFromInt(100)
	emergencyCount := 0
	seen := make(map[int]bool)

	for _, t := range req.Tiers {
		if t.RefundPercent.IsNegative() || t.RefundPercent.GreaterThan(hundred) {
			return nil, fmt.Errorf("refund percent must be between 0 and 100")
		}
		if t.CancellationFeeType == FeeTypeFixed && t.CancellationFeeAmount.IsNegative() {
			return nil, fmt.Errorf("fixed cancellation fee must not be negative")
		}
		if t.ProcessingFeeType == FeeTypeFixed && t.ProcessingFeeAmount.IsNegative() {
			return nil, fmt.Errorf("fixed processing fee must not be negative")
		}
		if t.CancellationFeeType == FeeTypePercentage && t.CancellationFeeAmount.GreaterThan(hundred) {
			return nil, fmt.Errorf("percentage cancellation fee must be between 0 and 100")
		}
		if t.ProcessingFeeType == FeeTypePercentage && t.ProcessingFeeAmount.GreaterThan(hundred) {
			return nil, fmt.Errorf("percentage processing fee must be between 0 and 100")
		}
		if t.IsEmergencyOverride {
			emergencyCount++
			continue
		}
		if seen[t.MinHoursBeforeDeparture] {
			return nil, fmt.Errorf("duplicate tier threshold: %d hours", t.MinHoursBeforeDeparture)
		}
		seen[t.MinHoursBeforeDeparture] = true
	}

	if emergencyCount > 1 {
		return nil, fmt.Errorf("a policy may define at most one emergency-override tier")
	}

	tiers := make([]Tier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		tiers = append(tiers, Tier{
			MinHoursBeforeDeparture: t.MinHoursBeforeDeparture,
			RefundPercent:           t.RefundPercent,
			CancellationFeeType:     t.CancellationFeeType,
			CancellationFeeAmount:   t.CancellationFeeAmount,
			ProcessingFeeType:       t.ProcessingFeeType,
			ProcessingFeeAmount:     t.ProcessingFeeAmount,
			IsEmergencyOverride:     t.IsEmergencyOverride,
		})
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinHoursBeforeDeparture > tiers[j].MinHoursBeforeDeparture
	})

	return &Policy{
		Name:     req.Name,
		Category: req.Category,
		Active:   *req.Active,
		Tiers:    tiers,
	}, nil
}
