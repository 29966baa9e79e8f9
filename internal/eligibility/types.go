package eligibility

import (
	"github.com/shopspring/decimal"
)

// ReasonCategory is the closed set of cancellation reason codes
type ReasonCategory string

const (
	ReasonMedicalEmergency ReasonCategory = "MEDICAL_EMERGENCY"
	ReasonWeather          ReasonCategory = "WEATHER"
	ReasonForceMajeure     ReasonCategory = "FORCE_MAJEURE"
	ReasonFinancial        ReasonCategory = "FINANCIAL"
	ReasonDuplicateBooking ReasonCategory = "DUPLICATE_BOOKING"
	ReasonOther            ReasonCategory = "OTHER"
)

// IsValid checks if the reason category is a known code
func (r ReasonCategory) IsValid() bool {
	switch r {
	case ReasonMedicalEmergency, ReasonWeather, ReasonForceMajeure,
		ReasonFinancial, ReasonDuplicateBooking, ReasonOther:
		return true
	}
	return false
}

// String returns the string representation of ReasonCategory
func (r ReasonCategory) String() string {
	return string(r)
}

// Draft carries the customer's cancellation request details prior to
// submission
type Draft struct {
	Reason             string         `json:"reason"`
	ReasonCategory     ReasonCategory `json:"reason_category"`
	IsMedicalEmergency bool           `json:"is_medical_emergency"`
	IsWeatherRelated   bool           `json:"is_weather_related"`
	IsForceMajeure     bool           `json:"is_force_majeure"`
	RequestsExpedite   bool           `json:"requests_expedite"`
	EvidenceRefs       []string       `json:"evidence_refs"`
}

// HasEmergencyFlag reports whether any emergency flag is set
func (d Draft) HasEmergencyFlag() bool {
	return d.IsMedicalEmergency || d.IsWeatherRelated || d.IsForceMajeure
}

// HasEvidence reports whether at least one evidence reference is attached
func (d Draft) HasEvidence() bool {
	return len(d.EvidenceRefs) > 0
}

// Evaluation is the outcome of an eligibility check. It carries everything
// the caller needs to render the decision or to freeze amounts on submission.
type Evaluation struct {
	Eligible                 bool            `json:"eligible"`
	IneligibleReason         string          `json:"ineligible_reason,omitempty"`
	HoursBeforeDeparture     int             `json:"hours_before_departure"`
	PolicyName               string          `json:"policy_name"`
	RefundPercent            decimal.Decimal `json:"refund_percent"`
	CancellationFee          decimal.Decimal `json:"cancellation_fee"`
	ProcessingFee            decimal.Decimal `json:"processing_fee"`
	EstimatedRefund          decimal.Decimal `json:"estimated_refund"`
	FinalRefundAmount        decimal.Decimal `json:"final_refund_amount"`
	EmergencyOverrideApplied bool            `json:"emergency_override_applied"`
	Warnings                 []string        `json:"warnings"`
	Requirements             []string        `json:"requirements"`
}
