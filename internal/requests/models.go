package requests

import (
	"time"

	"voyago/internal/eligibility"
	"voyago/internal/refunds"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CancellationRequest is the customer's request to cancel a booking. Amounts
// and the hours snapshot are frozen at evaluation time; later clock drift or
// policy changes never alter an existing request. Terminal requests are the
// permanent record and are never deleted.
type CancellationRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	// Reason
	Reason         string                     `gorm:"type:text;not null" json:"reason"`
	ReasonCategory eligibility.ReasonCategory `gorm:"type:varchar(30);not null" json:"reason_category"`

	// Flags upgrade priority and evidence requirements but never bypass the
	// state machine
	IsMedicalEmergency bool `gorm:"default:false" json:"is_medical_emergency"`
	IsWeatherRelated   bool `gorm:"default:false" json:"is_weather_related"`
	IsForceMajeure     bool `gorm:"default:false" json:"is_force_majeure"`
	RequestsExpedite   bool `gorm:"default:false" json:"requests_expedite"`

	// Monetary fields, frozen at evaluation time
	OriginalAmount    decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"original_amount"`
	CancellationFee   decimal.Decimal `gorm:"type:numeric(16,2);default:0" json:"cancellation_fee"`
	ProcessingFee     decimal.Decimal `gorm:"type:numeric(16,2);default:0" json:"processing_fee"`
	FinalRefundAmount decimal.Decimal `gorm:"type:numeric(16,2);default:0" json:"final_refund_amount"`

	// Timing snapshot captured at evaluation
	HoursBeforeDeparture int `gorm:"not null" json:"hours_before_departure"`

	// Lifecycle
	Status       Status         `gorm:"type:varchar(20);check:status IN ('REQUESTED', 'UNDER_REVIEW', 'APPROVED', 'REJECTED', 'COMPLETED', 'CANCELLED');default:'REQUESTED'" json:"status"`
	RefundStatus refunds.Status `gorm:"type:varchar(20);default:'NOT_APPLICABLE'" json:"refund_status"`

	// Admin annotations
	AdminNotes         string `gorm:"type:text" json:"admin_notes,omitempty"`
	PolicyName         string `gorm:"not null" json:"policy_name"`
	EmergencyOverride  bool   `gorm:"default:false" json:"emergency_override"`
	ZeroRefundApproved bool   `gorm:"default:false" json:"zero_refund_approved"`

	// Optimistic concurrency: every transition is a conditional write on the
	// version read
	Version int `gorm:"not null;default:1" json:"version"`

	RequestedAt       time.Time  `json:"requested_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	RefundCompletedAt *time.Time `json:"refund_completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relationships
	Evidence []EvidenceDocument `json:"evidence,omitempty" gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE;"`
}

// EvidenceDocument is a reference to an uploaded supporting document; the
// file itself lives in the external evidence store.
type EvidenceDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;index;not null" json:"request_id"`
	Reference string    `gorm:"not null" json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName sets the table name for CancellationRequest
func (CancellationRequest) TableName() string {
	return "cancellation_requests"
}

// TableName sets the table name for EvidenceDocument
func (EvidenceDocument) TableName() string {
	return "cancellation_evidence_documents"
}

// HasEmergencyFlag reports whether any emergency flag is set
func (r *CancellationRequest) HasEmergencyFlag() bool {
	return r.IsMedicalEmergency || r.IsWeatherRelated || r.IsForceMajeure
}

// IsTerminal reports whether the request reached a terminal status
func (r *CancellationRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}
