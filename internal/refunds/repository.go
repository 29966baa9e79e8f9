package refunds

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists refund transactions. Claiming a row for settlement is
// a conditional write so concurrent workers never process the same refund
// twice.
type Repository interface {
	Create(ctx context.Context, refund *RefundTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*RefundTransaction, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]RefundTransaction, error)
	Claim(ctx context.Context, refund *RefundTransaction) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ListByStatus(ctx context.Context, status Status, page, limit int) ([]RefundTransaction, int64, error)
	CalculateTotalPages(total int64, limit int) int
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, refund *RefundTransaction) error {
	err := r.db.WithContext(ctx).Create(refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRefundAlreadyExists
		}
		return fmt.Errorf("failed to create refund transaction: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*RefundTransaction, error) {
	var refund RefundTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund transaction: %w", err)
	}
	return &refund, nil
}

func (r *repository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error) {
	var refund RefundTransaction
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&refund).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to get refund transaction: %w", err)
	}
	return &refund, nil
}

// ListDue returns refunds ready for a settlement attempt. Expedited refunds
// jump the queue; within a priority band older rows go first.
func (r *repository) ListDue(ctx context.Context, now time.Time, limit int) ([]RefundTransaction, error) {
	var due []RefundTransaction
	err := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPending, StatusFailed}).
		Where("next_attempt_at IS NOT NULL AND next_attempt_at <= ?", now).
		Order("expedited DESC, next_attempt_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due refunds: %w", err)
	}
	return due, nil
}

// Claim moves the refund to PROCESSING, conditioned on the attempts count
// the caller read. A row another worker already claimed matches zero rows
// and comes back as ErrRefundNotClaimable; the caller just skips it.
func (r *repository) Claim(ctx context.Context, refund *RefundTransaction) error {
	result := r.db.WithContext(ctx).Model(&RefundTransaction{}).
		Where("id = ? AND attempts = ? AND status IN ?", refund.ID, refund.Attempts, []Status{StatusPending, StatusFailed}).
		Updates(map[string]interface{}{
			"status":     StatusProcessing,
			"attempts":   refund.Attempts + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to claim refund: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefundNotClaimable
	}
	refund.Status = StatusProcessing
	refund.Attempts++
	return nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	merged := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		merged[k] = v
	}
	merged["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&RefundTransaction{}).
		Where("id = ?", id).
		Updates(merged)
	if result.Error != nil {
		return fmt.Errorf("failed to update refund transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefundNotFound
	}
	return nil
}

// ListByStatus serves the admin refund dashboard
func (r *repository) ListByStatus(ctx context.Context, status Status, page, limit int) ([]RefundTransaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&RefundTransaction{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count refund transactions: %w", err)
	}

	var results []RefundTransaction
	offset := (page - 1) * limit
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list refund transactions: %w", err)
	}
	return results, total, nil
}

// CalculateTotalPages calculates total pages for pagination
func (r *repository) CalculateTotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
