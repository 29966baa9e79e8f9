package refunds

import "errors"

var (
	// ErrRefundNotFound is returned when no refund exists for the given key
	ErrRefundNotFound = errors.New("refund transaction not found")

	// ErrRefundAlreadyExists is returned when a second refund is created for
	// the same cancellation request
	ErrRefundAlreadyExists = errors.New("a refund already exists for this request")

	// ErrInvalidRefundTransition is returned for a settlement state change
	// that is illegal from the current status
	ErrInvalidRefundTransition = errors.New("invalid refund transition")

	// ErrRefundOverAmount is returned when a reported settlement exceeds the
	// approved refund amount
	ErrRefundOverAmount = errors.New("settled amount exceeds the approved refund amount")

	// ErrZeroAmountCompletion is returned when a completion reports a zero
	// amount without an explicit zero-refund approval on record
	ErrZeroAmountCompletion = errors.New("zero-amount completion requires an approved zero refund")

	// ErrConflictingOutcome is returned when an outcome is reported for a
	// refund that already settled differently
	ErrConflictingOutcome = errors.New("refund already settled with a different outcome")

	// ErrRefundNotClaimable is returned when a settlement attempt races
	// another worker for the same row; the row is skipped, not retried
	ErrRefundNotClaimable = errors.New("refund is not claimable for settlement")
)
