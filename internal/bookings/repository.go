package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrBookingNotFound is returned when no booking exists for the given id
var ErrBookingNotFound = errors.New("booking not found")

// Repository reads booking snapshots and maintains the pending-cancellation
// marker on behalf of the workflow
type Repository interface {
	GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	SetPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	ClearPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkCancelled(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	snapshot := booking.ToSnapshot()
	return &snapshot, nil
}

// SetPendingCancellation flips the marker inside the caller's transaction so
// the flag and the request row commit together
func (r *repository) SetPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.updateMarker(ctx, tx, id, true)
}

func (r *repository) ClearPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.updateMarker(ctx, tx, id, false)
}

func (r *repository) updateMarker(ctx context.Context, tx *gorm.DB, id uuid.UUID, pending bool) error {
	db := tx
	if db == nil {
		db = r.db.WithContext(ctx)
	}
	result := db.Model(&Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pending_cancellation": pending,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update pending-cancellation marker: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// MarkCancelled records the booking itself as cancelled once a request
// completes with a refund
func (r *repository) MarkCancelled(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	db := tx
	if db == nil {
		db = r.db.WithContext(ctx)
	}
	now := time.Now()
	result := db.Model(&Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":               StatusCancelled,
			"pending_cancellation": false,
			"cancelled_at":         now,
			"updated_at":           now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark booking cancelled: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}
