package requests

import "errors"

var (
	// ErrRequestNotFound is returned when no request exists for the given id
	ErrRequestNotFound = errors.New("cancellation request not found")

	// ErrRequestAlreadyActive is returned when a booking already has a
	// non-terminal request; callers should fetch the existing request
	ErrRequestAlreadyActive = errors.New("an active cancellation request already exists for this booking")

	// ErrInvalidTransition is returned for a state change that is illegal
	// from the current status; state is left unchanged
	ErrInvalidTransition = errors.New("invalid cancellation request transition")

	// ErrConcurrentModification is returned when an optimistic-concurrency
	// check fails; the caller should reload and retry
	ErrConcurrentModification = errors.New("cancellation request was modified concurrently")

	// ErrNotEligible is returned by submit when the evaluation denies
	// cancellation; no request is created
	ErrNotEligible = errors.New("booking is not eligible for cancellation")

	// ErrEvidenceRequired is returned when an emergency flag is set without
	// any supporting document reference
	ErrEvidenceRequired = errors.New("supporting documents are required for emergency cancellations")

	// ErrNotRequestOwner is returned when a customer acts on a request that
	// belongs to another user
	ErrNotRequestOwner = errors.New("cancellation request does not belong to user")

	// ErrZeroRefundApprovalRequired is returned when an admin approves a
	// request whose computed refund is zero without confirming the
	// zero-refund outcome explicitly
	ErrZeroRefundApprovalRequired = errors.New("approving a zero-amount refund requires explicit confirmation")
)
