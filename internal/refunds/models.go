package refunds

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RefundTransaction is the durable settlement record for an approved
// cancellation. One row per request, created at approval time; the
// settlement worker and the gateway callback both converge on this row, so
// a crash between gateway call and acknowledgement loses nothing.
type RefundTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	// Amount is the approved refund; ActualAmount is what the gateway
	// reports back and may legitimately be lower, never higher unless an
	// operator overrides
	Amount       decimal.Decimal  `gorm:"type:numeric(16,2);not null" json:"amount"`
	ActualAmount *decimal.Decimal `gorm:"type:numeric(16,2)" json:"actual_amount,omitempty"`

	Status Status `gorm:"type:varchar(20);check:status IN ('NOT_APPLICABLE', 'PENDING', 'PROCESSING', 'COMPLETED', 'FAILED', 'CANCELLED');default:'PENDING'" json:"status"`

	// Retry bookkeeping for the settlement worker
	Attempts      int        `gorm:"default:0" json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`

	// ZeroRefundApproved records that an admin explicitly confirmed a
	// zero-amount outcome; without it a zero-amount completion is rejected
	ZeroRefundApproved bool   `gorm:"default:false" json:"zero_refund_approved"`
	AdminOverride      bool   `gorm:"default:false" json:"admin_override"`
	GatewayReference   string `json:"gateway_reference,omitempty"`

	Expedited   bool       `gorm:"default:false" json:"expedited"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName sets the table name for RefundTransaction
func (RefundTransaction) TableName() string {
	return "refund_transactions"
}

// IsSettled reports whether the refund reached a final state
func (r *RefundTransaction) IsSettled() bool {
	return r.Status.IsTerminal()
}
