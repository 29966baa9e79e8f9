package eligibility

import (
	"errors"
	"fmt"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/policies"

	"github.com/shopspring/decimal"
)

var (
	// ErrBookingNotCancellable is returned when the booking state forbids
	// cancellation (already cancelled, completed, or departed)
	ErrBookingNotCancellable = errors.New("booking is not cancellable")

	// ErrReasonTooShort is returned when the free-text reason is below the
	// minimum length
	ErrReasonTooShort = errors.New("cancellation reason is too short")

	// ErrUnknownReasonCategory is returned for a reason code outside the
	// closed enumeration
	ErrUnknownReasonCategory = errors.New("unknown reason category")
)

// DefaultMinReasonLength is the fallback reason-length threshold
const DefaultMinReasonLength = 10

// Evaluator computes cancellation eligibility and the fee/refund split.
// Evaluate has no side effects: identical inputs with an identical clock
// reading produce identical output.
type Evaluator struct {
	minReasonLength int
	now             func() time.Time
}

// NewEvaluator creates an evaluator. A nil clock defaults to time.Now.
func NewEvaluator(minReasonLength int, now func() time.Time) *Evaluator {
	if minReasonLength <= 0 {
		minReasonLength = DefaultMinReasonLength
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		minReasonLength: minReasonLength,
		now:             now,
	}
}

// Evaluate checks whether the booking may be cancelled under the policy and
// computes the fee breakdown. The clock is read exactly once per call; the
// resulting hours snapshot is what submission freezes.
func (e *Evaluator) Evaluate(booking bookings.Snapshot, draft Draft, policy policies.Policy) (*Evaluation, error) {
	if len(draft.Reason) < e.minReasonLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrReasonTooShort, e.minReasonLength)
	}
	if !draft.ReasonCategory.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReasonCategory, draft.ReasonCategory)
	}
	if !booking.Status.CanBeCancelled() {
		return nil, fmt.Errorf("%w: booking status is %s", ErrBookingNotCancellable, booking.Status)
	}

	now := e.now()
	remaining := booking.StartDate.Sub(now)
	if remaining < 0 {
		return nil, fmt.Errorf("%w: departure has already passed", ErrBookingNotCancellable)
	}
	hours := int(remaining.Hours())

	eval := &Evaluation{
		HoursBeforeDeparture: hours,
		PolicyName:           policy.Name,
		Warnings:             []string{},
		Requirements:         []string{},
	}

	tier := selectTier(policy, hours)
	if tier == nil {
		emergency := policy.EmergencyTier()
		switch {
		case emergency == nil || !draft.HasEmergencyFlag():
			eval.Eligible = false
			eval.IneligibleReason = "too close to departure"
			return eval, nil
		case !draft.HasEvidence():
			eval.Eligible = false
			eval.IneligibleReason = "too close to departure; emergency override requires supporting documents"
			eval.Requirements = append(eval.Requirements, "attach supporting documents to use the emergency override")
			return eval, nil
		default:
			tier = emergency
			eval.EmergencyOverrideApplied = true
			eval.Warnings = append(eval.Warnings, "emergency override applied, subject to admin review of the attached documents")
		}
	}

	eval.Eligible = true
	eval.RefundPercent = tier.RefundPercent
	eval.CancellationFee = policies.ComputeFee(tier.CancellationFeeType, tier.CancellationFeeAmount, booking.OriginalAmount)
	eval.ProcessingFee = policies.ComputeFee(tier.ProcessingFeeType, tier.ProcessingFeeAmount, booking.OriginalAmount)
	eval.EstimatedRefund = booking.OriginalAmount.Mul(tier.RefundPercent).Div(decimal.NewFromInt(100))

	final := eval.EstimatedRefund.Sub(eval.CancellationFee).Sub(eval.ProcessingFee)
	if final.IsNegative() {
		final = decimal.Zero
	}
	if final.GreaterThan(booking.OriginalAmount) {
		final = booking.OriginalAmount
	}
	eval.FinalRefundAmount = final

	if eval.CancellationFee.IsPositive() {
		eval.Warnings = append(eval.Warnings, "cancellation fee applies")
	}
	if eval.ProcessingFee.IsPositive() {
		eval.Warnings = append(eval.Warnings, "processing fee applies")
	}
	if final.IsZero() {
		eval.Warnings = append(eval.Warnings, "fees consume the entire refund; no amount will be returned")
	}
	if draft.HasEmergencyFlag() {
		eval.Requirements = append(eval.Requirements, "supporting documents required")
	}
	if draft.RequestsExpedite {
		eval.Warnings = append(eval.Warnings, "expedited processing requested, subject to availability")
	}

	return eval, nil
}

// selectTier picks the tier with the greatest threshold not exceeding the
// hours remaining. The lower bound is inclusive: a booking at exactly the
// threshold uses that tier.
func selectTier(policy policies.Policy, hours int) *policies.Tier {
	var best *policies.Tier
	for _, t := range policy.StandardTiers() {
		t := t
		if hours >= t.MinHoursBeforeDeparture {
			if best == nil || t.MinHoursBeforeDeparture > best.MinHoursBeforeDeparture {
				best = &t
			}
		}
	}
	return best
}
