package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCancellationSubmitted   EventType = "CANCELLATION_SUBMITTED"
	EventCancellationUnderReview EventType = "CANCELLATION_UNDER_REVIEW"
	EventCancellationApproved    EventType = "CANCELLATION_APPROVED"
	EventCancellationRejected    EventType = "CANCELLATION_REJECTED"
	EventCancellationWithdrawn   EventType = "CANCELLATION_WITHDRAWN"
	EventCancellationCompleted   EventType = "CANCELLATION_COMPLETED"
	EventRefundProcessing        EventType = "REFUND_PROCESSING"
	EventRefundCompleted         EventType = "REFUND_COMPLETED"
	EventRefundFailed            EventType = "REFUND_FAILED"
)

// CancellationEvent is the message published on every workflow transition.
// Downstream consumers handle customer email; nothing in the workflow
// blocks on delivery.
type CancellationEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	RequestID uuid.UUID `json:"request_id"`
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`

	Status       string           `json:"status"`
	RefundStatus string           `json:"refund_status,omitempty"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`

	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCancellationEvent fills the envelope fields
func NewCancellationEvent(eventType EventType, requestID, bookingID, userID uuid.UUID) *CancellationEvent {
	return &CancellationEvent{
		ID:         uuid.New(),
		Type:       eventType,
		RequestID:  requestID,
		BookingID:  bookingID,
		UserID:     userID,
		OccurredAt: time.Now(),
	}
}

// ToJSON serializes the event for the wire
func (e *CancellationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey routes every event for a booking to the same partition so
// consumers see its transitions in order
func (e *CancellationEvent) PartitionKey() string {
	return e.BookingID.String()
}
