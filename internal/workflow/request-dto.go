package workflow

import (
	"voyago/internal/eligibility"
	"voyago/internal/refunds"
	"voyago/internal/requests"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("reasoncategory", func(fl validator.FieldLevel) bool {
			return eligibility.ReasonCategory(fl.Field().String()).IsValid()
		})
	}
}

// CancellationDraftRequest is the customer's cancellation input, used for
// both the dry-run evaluation and the actual submission
type CancellationDraftRequest struct {
	Reason             string   `json:"reason" binding:"required"`
	ReasonCategory     string   `json:"reason_category" binding:"required,reasoncategory"`
	IsMedicalEmergency bool     `json:"is_medical_emergency"`
	IsWeatherRelated   bool     `json:"is_weather_related"`
	IsForceMajeure     bool     `json:"is_force_majeure"`
	RequestsExpedite   bool     `json:"requests_expedite"`
	EvidenceRefs       []string `json:"evidence_refs"`
}

// ToDraft converts the request body into an evaluation draft
func (r *CancellationDraftRequest) ToDraft() eligibility.Draft {
	return eligibility.Draft{
		Reason:             r.Reason,
		ReasonCategory:     eligibility.ReasonCategory(r.ReasonCategory),
		IsMedicalEmergency: r.IsMedicalEmergency,
		IsWeatherRelated:   r.IsWeatherRelated,
		IsForceMajeure:     r.IsForceMajeure,
		RequestsExpedite:   r.RequestsExpedite,
		EvidenceRefs:       r.EvidenceRefs,
	}
}

// DecisionRequest is the admin verdict body
type DecisionRequest struct {
	Outcome           string `json:"outcome" binding:"required,oneof=APPROVE REJECT"`
	AdminNotes        string `json:"admin_notes"`
	ConfirmZeroRefund bool   `json:"confirm_zero_refund"`
}

// ToDecision converts the body into a domain decision
func (r *DecisionRequest) ToDecision(adminID string) requests.Decision {
	return requests.Decision{
		Outcome:           requests.DecisionOutcome(r.Outcome),
		AdminID:           adminID,
		AdminNotes:        r.AdminNotes,
		ConfirmZeroRefund: r.ConfirmZeroRefund,
	}
}

// RefundOutcomeRequest is a settlement result reported from the payment
// side. ActualAmount is optional for completions and defaults to the
// approved amount.
type RefundOutcomeRequest struct {
	Status        string           `json:"status" binding:"required,oneof=COMPLETED FAILED"`
	ActualAmount  *decimal.Decimal `json:"actual_amount"`
	Reference     string           `json:"reference"`
	FailureReason string           `json:"failure_reason"`
	AdminOverride bool             `json:"admin_override"`
}

// ToOutcome converts the body into a domain outcome
func (r *RefundOutcomeRequest) ToOutcome() refunds.Outcome {
	return refunds.Outcome{
		Status:        refunds.Status(r.Status),
		ActualAmount:  r.ActualAmount,
		Reference:     r.Reference,
		FailureReason: r.FailureReason,
		AdminOverride: r.AdminOverride,
	}
}
