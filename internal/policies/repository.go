package policies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrPolicyNotFound is returned when no policy is configured for a category.
// The registry never falls back to a guessed policy.
var ErrPolicyNotFound = errors.New("cancellation policy not found")

// Repository interface defines the contract for policy data operations
type Repository interface {
	Create(ctx context.Context, policy *Policy) error
	GetByCategory(ctx context.Context, category string) (*Policy, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	Update(ctx context.Context, policy *Policy) error
	List(ctx context.Context) ([]Policy, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new policy repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, policy *Policy) error {
	err := r.db.WithContext(ctx).Create(policy).Error
	if err != nil {
		return fmt.Errorf("failed to create cancellation policy: %w", err)
	}
	return nil
}

func (r *repository) GetByCategory(ctx context.Context, category string) (*Policy, error) {
	var policy Policy
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Where("category = ? AND active = ?", category, true).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	return &policy, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	var policy Policy
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Where("id = ?", id).
		First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation policy: %w", err)
	}
	return &policy, nil
}

// Update replaces the policy's tiers atomically so a reader never sees a
// half-updated tier ladder
func (r *repository) Update(ctx context.Context, policy *Policy) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("policy_id = ?", policy.ID).Delete(&Tier{}).Error; err != nil {
			return fmt.Errorf("failed to clear policy tiers: %w", err)
		}
		if err := tx.Save(policy).Error; err != nil {
			return fmt.Errorf("failed to update cancellation policy: %w", err)
		}
		return nil
	})
}

func (r *repository) List(ctx context.Context) ([]Policy, error) {
	var list []Policy
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Order("category ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cancellation policies: %w", err)
	}
	return list, nil
}
