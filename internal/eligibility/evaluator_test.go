package eligibility

import (
	"testing"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/policies"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testClock
}

func testPolicy() policies.Policy {
	return policies.Policy{
		Name:     "Adventure Tours Standard",
		Category: "ADVENTURE",
		Active:   true,
		Tiers: []policies.Tier{
			{
				MinHoursBeforeDeparture: 168,
				RefundPercent:           decimal.NewFromInt(100),
				CancellationFeeType:     policies.FeeTypeNone,
				ProcessingFeeType:       policies.FeeTypeNone,
			},
			{
				MinHoursBeforeDeparture: 72,
				RefundPercent:           decimal.NewFromInt(75),
				CancellationFeeType:     policies.FeeTypeFixed,
				CancellationFeeAmount:   decimal.NewFromInt(50),
				ProcessingFeeType:       policies.FeeTypePercentage,
				ProcessingFeeAmount:     decimal.NewFromInt(2),
			},
			{
				MinHoursBeforeDeparture: 24,
				RefundPercent:           decimal.NewFromInt(25),
				CancellationFeeType:     policies.FeeTypeFixed,
				CancellationFeeAmount:   decimal.NewFromInt(100),
				ProcessingFeeType:       policies.FeeTypeNone,
			},
			{
				MinHoursBeforeDeparture: 0,
				RefundPercent:           decimal.NewFromInt(90),
				CancellationFeeType:     policies.FeeTypeNone,
				ProcessingFeeType:       policies.FeeTypeNone,
				IsEmergencyOverride:     true,
			},
		},
	}
}

func testBooking(hoursAhead int, amount int64) bookings.Snapshot {
	return bookings.Snapshot{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		TourCategory:   "ADVENTURE",
		StartDate:      testClock.Add(time.Duration(hoursAhead) * time.Hour),
		OriginalAmount: decimal.NewFromInt(amount),
		Status:         bookings.StatusConfirmed,
	}
}

func validDraft() Draft {
	return Draft{
		Reason:         "our plans changed and we can no longer travel",
		ReasonCategory: ReasonOther,
	}
}

func TestEvaluateFullRefundWindow(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	eval, err := e.Evaluate(testBooking(200, 1000), validDraft(), testPolicy())
	require.NoError(t, err)

	assert.True(t, eval.Eligible)
	assert.Equal(t, 200, eval.HoursBeforeDeparture)
	assert.Equal(t, "Adventure Tours Standard", eval.PolicyName)
	assert.True(t, eval.RefundPercent.Equal(decimal.NewFromInt(100)))
	assert.True(t, eval.CancellationFee.IsZero())
	assert.True(t, eval.ProcessingFee.IsZero())
	assert.True(t, eval.FinalRefundAmount.Equal(decimal.NewFromInt(1000)))
}

func TestEvaluateMidTierWithFees(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	eval, err := e.Evaluate(testBooking(100, 1000), validDraft(), testPolicy())
	require.NoError(t, err)

	require.True(t, eval.Eligible)
	// 75% of 1000 minus 50 fixed minus 2% of 1000
	assert.True(t, eval.EstimatedRefund.Equal(decimal.NewFromInt(750)))
	assert.True(t, eval.CancellationFee.Equal(decimal.NewFromInt(50)))
	assert.True(t, eval.ProcessingFee.Equal(decimal.NewFromInt(20)))
	assert.True(t, eval.FinalRefundAmount.Equal(decimal.NewFromInt(680)))
	assert.Contains(t, eval.Warnings, "cancellation fee applies")
	assert.Contains(t, eval.Warnings, "processing fee applies")
}

func TestEvaluateTierBoundaryIsInclusive(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	// Exactly at the 72h threshold the 75% tier applies, not the 25% one
	eval, err := e.Evaluate(testBooking(72, 1000), validDraft(), testPolicy())
	require.NoError(t, err)
	require.True(t, eval.Eligible)
	assert.True(t, eval.RefundPercent.Equal(decimal.NewFromInt(75)))

	// One hour under the threshold drops to the lower tier
	eval, err = e.Evaluate(testBooking(71, 1000), validDraft(), testPolicy())
	require.NoError(t, err)
	require.True(t, eval.Eligible)
	assert.True(t, eval.RefundPercent.Equal(decimal.NewFromInt(25)))
}

func TestEvaluateFeesNeverExceedRefund(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	// 25% of 300 is 75, fixed fee of 100 would go negative
	eval, err := e.Evaluate(testBooking(30, 300), validDraft(), testPolicy())
	require.NoError(t, err)

	require.True(t, eval.Eligible)
	assert.True(t, eval.FinalRefundAmount.IsZero())
	assert.Contains(t, eval.Warnings, "fees consume the entire refund; no amount will be returned")
}

func TestEvaluateTooCloseToDeparture(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	policy := testPolicy()
	policy.Tiers = policy.Tiers[:3] // strip the emergency tier
	policy.Tiers[2].MinHoursBeforeDeparture = 24

	eval, err := e.Evaluate(testBooking(5, 1000), validDraft(), policy)
	require.NoError(t, err)

	assert.False(t, eval.Eligible)
	assert.Equal(t, "too close to departure", eval.IneligibleReason)
}

func TestEvaluateEmergencyOverride(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	draft := validDraft()
	draft.ReasonCategory = ReasonMedicalEmergency
	draft.IsMedicalEmergency = true
	draft.EvidenceRefs = []string{"docs/hospital-note.pdf"}

	// 5h out, below every standard tier, but the emergency tier catches it
	eval, err := e.Evaluate(testBooking(5, 1000), draft, testPolicy())
	require.NoError(t, err)

	require.True(t, eval.Eligible)
	assert.True(t, eval.EmergencyOverrideApplied)
	assert.True(t, eval.FinalRefundAmount.Equal(decimal.NewFromInt(900)))
	assert.Contains(t, eval.Requirements, "supporting documents required")
}

func TestEvaluateEmergencyOverrideNeedsEvidence(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	draft := validDraft()
	draft.IsWeatherRelated = true

	eval, err := e.Evaluate(testBooking(5, 1000), draft, testPolicy())
	require.NoError(t, err)

	assert.False(t, eval.Eligible)
	assert.False(t, eval.EmergencyOverrideApplied)
	assert.NotEmpty(t, eval.Requirements)
}

func TestEvaluateEmergencyFlagWithoutOverrideTier(t *testing.T) {
	e := NewEvaluator(10, fixedClock)

	policy := testPolicy()
	policy.Tiers = policy.Tiers[:3]

	draft := validDraft()
	draft.IsForceMajeure = true
	draft.EvidenceRefs = []string{"docs/embassy-letter.pdf"}

	eval, err := e.Evaluate(testBooking(5, 1000), draft, policy)
	require.NoError(t, err)
	assert.False(t, eval.Eligible)
}

func TestEvaluateInputValidation(t *testing.T) {
	e := NewEvaluator(10, fixedClock)
	policy := testPolicy()

	t.Run("reason too short", func(t *testing.T) {
		draft := validDraft()
		draft.Reason = "too bad"
		_, err := e.Evaluate(testBooking(100, 1000), draft, policy)
		assert.ErrorIs(t, err, ErrReasonTooShort)
	})

	t.Run("unknown reason category", func(t *testing.T) {
		draft := validDraft()
		draft.ReasonCategory = "VIBES"
		_, err := e.Evaluate(testBooking(100, 1000), draft, policy)
		assert.ErrorIs(t, err, ErrUnknownReasonCategory)
	})

	t.Run("cancelled booking", func(t *testing.T) {
		booking := testBooking(100, 1000)
		booking.Status = bookings.StatusCancelled
		_, err := e.Evaluate(booking, validDraft(), policy)
		assert.ErrorIs(t, err, ErrBookingNotCancellable)
	})

	t.Run("departed booking", func(t *testing.T) {
		booking := testBooking(-2, 1000)
		_, err := e.Evaluate(booking, validDraft(), policy)
		assert.ErrorIs(t, err, ErrBookingNotCancellable)
	})
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := NewEvaluator(10, fixedClock)
	booking := testBooking(100, 1234)
	draft := validDraft()
	policy := testPolicy()

	first, err := e.Evaluate(booking, draft, policy)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := e.Evaluate(booking, draft, policy)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
