package workflow

import (
	"time"

	"voyago/internal/eligibility"
	"voyago/internal/refunds"
	"voyago/internal/requests"

	"github.com/shopspring/decimal"
)

// EvaluationResponse is the dry-run result shown to the customer before
// they commit to a cancellation
type EvaluationResponse struct {
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

// NewEvaluationResponse maps an evaluation to its response body
func NewEvaluationResponse(eval *eligibility.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		Eligible:                 eval.Eligible,
		IneligibleReason:         eval.IneligibleReason,
		HoursBeforeDeparture:     eval.HoursBeforeDeparture,
		PolicyName:               eval.PolicyName,
		RefundPercent:            eval.RefundPercent,
		CancellationFee:          eval.CancellationFee,
		ProcessingFee:            eval.ProcessingFee,
		EstimatedRefund:          eval.EstimatedRefund,
		FinalRefundAmount:        eval.FinalRefundAmount,
		EmergencyOverrideApplied: eval.EmergencyOverrideApplied,
		Warnings:                 eval.Warnings,
		Requirements:             eval.Requirements,
	}
}

// RefundResponse is the settlement view attached to a request
type RefundResponse struct {
	Status        refunds.Status   `json:"status"`
	Amount        decimal.Decimal  `json:"amount"`
	ActualAmount  *decimal.Decimal `json:"actual_amount,omitempty"`
	Attempts      int              `json:"attempts"`
	NextAttemptAt *time.Time       `json:"next_attempt_at,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
	Expedited     bool             `json:"expedited"`
	GatewayRef    string           `json:"gateway_reference,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// RequestResponse is the combined request plus refund view
type RequestResponse struct {
	Request *requests.CancellationRequest `json:"request"`
	Refund  *RefundResponse               `json:"refund,omitempty"`
}

// NewRequestResponse maps a detail to its response body
func NewRequestResponse(detail *RequestDetail) RequestResponse {
	resp := RequestResponse{Request: detail.Request}
	if detail.Refund != nil {
		resp.Refund = &RefundResponse{
			Status:        detail.Refund.Status,
			Amount:        detail.Refund.Amount,
			ActualAmount:  detail.Refund.ActualAmount,
			Attempts:      detail.Refund.Attempts,
			NextAttemptAt: detail.Refund.NextAttemptAt,
			LastError:     detail.Refund.LastError,
			Expedited:     detail.Refund.Expedited,
			GatewayRef:    detail.Refund.GatewayReference,
			CompletedAt:   detail.Refund.CompletedAt,
		}
	}
	return resp
}

// Pagination is the standard list pagination envelope
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// ListResponse is the paged request listing
type ListResponse struct {
	Requests   []requests.CancellationRequest `json:"requests"`
	Pagination Pagination                     `json:"pagination"`
}

// RefundListResponse is the paged refund listing for the admin dashboard
type RefundListResponse struct {
	Refunds    []refunds.RefundTransaction `json:"refunds"`
	Pagination Pagination                  `json:"pagination"`
}
