package requests

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"voyago/internal/bookings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilters narrows and pages user-facing request listings. Rejected
// requests are hidden unless explicitly asked for.
type ListFilters struct {
	Status          *Status
	IncludeRejected bool
	Search          string
	Page            int
	Limit           int
}

// Repository persists cancellation requests and applies lifecycle
// transitions together with their booking side effects
type Repository interface {
	Create(ctx context.Context, req *CancellationRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	GetLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]CancellationRequest, int64, error)
	ListByStatus(ctx context.Context, status Status, page, limit int) ([]CancellationRequest, int64, error)
	Transition(ctx context.Context, req *CancellationRequest, updates map[string]interface{}) error
	SetRefundStatus(ctx context.Context, id uuid.UUID, refundStatus string, completedAt *time.Time) error
	CalculateTotalPages(total int64, limit int) int
}

type repository struct {
	db          *gorm.DB
	bookingRepo bookings.Repository
}

func NewRepository(db *gorm.DB, bookingRepo bookings.Repository) Repository {
	return &repository{db: db, bookingRepo: bookingRepo}
}

// Create inserts the request and its evidence and flips the booking's
// pending-cancellation marker in one transaction. A second active request
// for the same booking trips the partial unique index, which surfaces here
// as ErrRequestAlreadyActive regardless of which instance got there first.
func (r *repository) Create(ctx context.Context, req *CancellationRequest) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return r.bookingRepo.SetPendingCancellation(ctx, tx, req.BookingID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRequestAlreadyActive
		}
		return fmt.Errorf("failed to create cancellation request: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	var req CancellationRequest
	err := r.db.WithContext(ctx).
		Preload("Evidence").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation request: %w", err)
	}
	return &req, nil
}

// GetLatestByBookingID returns the most recent request for a booking. All
// status reads go through this row; there is no secondary copy to drift.
func (r *repository) GetLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	var req CancellationRequest
	err := r.db.WithContext(ctx).
		Preload("Evidence").
		Where("booking_id = ?", bookingID).
		Order("requested_at DESC").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get cancellation request for booking: %w", err)
	}
	return &req, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]CancellationRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&CancellationRequest{}).
		Where("user_id = ?", userID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	} else if !filters.IncludeRejected {
		query = query.Where("status != ?", StatusRejected)
	}
	if filters.Search != "" {
		query = query.Where("reason ILIKE ?", "%"+filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cancellation requests: %w", err)
	}

	var results []CancellationRequest
	offset := (filters.Page - 1) * filters.Limit
	err := query.
		Preload("Evidence").
		Order("requested_at DESC").
		Offset(offset).
		Limit(filters.Limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cancellation requests: %w", err)
	}
	return results, total, nil
}

// ListByStatus serves the admin review queue, oldest first
func (r *repository) ListByStatus(ctx context.Context, status Status, page, limit int) ([]CancellationRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&CancellationRequest{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cancellation requests: %w", err)
	}

	var results []CancellationRequest
	offset := (page - 1) * limit
	err := query.
		Preload("Evidence").
		Order("requested_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cancellation requests: %w", err)
	}
	return results, total, nil
}

// Transition applies a lifecycle update conditioned on the version the
// caller read. A concurrent write bumps the version first and this update
// matches zero rows, so the loser gets ErrConcurrentModification instead of
// silently overwriting. Booking side effects ride the same transaction.
func (r *repository) Transition(ctx context.Context, req *CancellationRequest, updates map[string]interface{}) error {
	merged := make(map[string]interface{}, len(updates)+2)
	for k, v := range updates {
		merged[k] = v
	}
	merged["version"] = req.Version + 1
	merged["updated_at"] = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&CancellationRequest{}).
			Where("id = ? AND version = ?", req.ID, req.Version).
			Updates(merged)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		if target, ok := merged["status"].(Status); ok {
			switch target {
			case StatusRejected, StatusCancelled:
				if err := r.bookingRepo.ClearPendingCancellation(ctx, tx, req.BookingID); err != nil {
					return err
				}
			case StatusCompleted:
				if err := r.bookingRepo.MarkCancelled(ctx, tx, req.BookingID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to transition cancellation request: %w", err)
	}

	req.Version++
	return nil
}

// SetRefundStatus updates the denormalized refund status mirror. This is
// not a lifecycle transition so it does not contend on the version column.
func (r *repository) SetRefundStatus(ctx context.Context, id uuid.UUID, refundStatus string, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"refund_status": refundStatus,
		"updated_at":    time.Now(),
	}
	if completedAt != nil {
		updates["refund_completed_at"] = *completedAt
	}
	result := r.db.WithContext(ctx).Model(&CancellationRequest{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set refund status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// CalculateTotalPages calculates total pages for pagination
func (r *repository) CalculateTotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
