package policies

import "github.com/shopspring/decimal"

// PolicyRequest creates or replaces a policy for a tour category
type PolicyRequest struct {
	Name     string        `json:"name" binding:"required,min=3,max=100"`
	Category string        `json:"category" binding:"required,min=2,max=50"`
	Active   *bool         `json:"active" binding:"required"`
	Tiers    []TierRequest `json:"tiers" binding:"required,min=1,dive"`
}

// TierRequest is one rung of the tier ladder
type TierRequest struct {
	MinHoursBeforeDeparture int             `json:"min_hours_before_departure" binding:"min=0"`
	RefundPercent           decimal.Decimal `json:"refund_percent" binding:"required"`
	CancellationFeeType     FeeType         `json:"cancellation_fee_type" binding:"required,oneof=NONE FIXED PERCENTAGE"`
	CancellationFeeAmount   decimal.Decimal `json:"cancellation_fee_amount"`
	ProcessingFeeType       FeeType         `json:"processing_fee_type" binding:"required,oneof=NONE FIXED PERCENTAGE"`
	ProcessingFeeAmount     decimal.Decimal `json:"processing_fee_amount"`
	IsEmergencyOverride     bool            `json:"is_emergency_override"`
}
