package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking defines the booking record this service reads; bookings are created
// and paid for elsewhere, the workflow only consumes snapshots and flips the
// pending-cancellation marker.
type Booking struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	BookingRef          string          `gorm:"unique;not null" json:"booking_ref"`
	TourCategory        string          `gorm:"type:varchar(50);index;not null" json:"tour_category"`
	StartDate           time.Time       `gorm:"not null" json:"start_date"`
	OriginalAmount      decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"original_amount"`
	Status              Status          `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'COMPLETED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	PendingCancellation bool            `gorm:"default:false" json:"pending_cancellation"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	CancelledAt         *time.Time      `json:"cancelled_at,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// Snapshot is the read-only view the cancellation workflow evaluates against
type Snapshot struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	BookingRef     string          `json:"booking_ref"`
	TourCategory   string          `json:"tour_category"`
	StartDate      time.Time       `json:"start_date"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Status         Status          `json:"status"`
}

// ToSnapshot copies the evaluation-relevant fields
func (b *Booking) ToSnapshot() Snapshot {
	return Snapshot{
		ID:             b.ID,
		UserID:         b.UserID,
		BookingRef:     b.BookingRef,
		TourCategory:   b.TourCategory,
		StartDate:      b.StartDate,
		OriginalAmount: b.OriginalAmount,
		Status:         b.Status,
	}
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}
