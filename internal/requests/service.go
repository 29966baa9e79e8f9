package requests

import (
	"context"
	"fmt"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/eligibility"
	"voyago/internal/policies"
	"voyago/internal/refunds"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// Decision carries an admin's verdict on a request under review
type Decision struct {
	Outcome           DecisionOutcome
	AdminID           string
	AdminNotes        string
	ConfirmZeroRefund bool
}

// Service owns the request lifecycle. Eligibility is computed once at
// submission and frozen onto the row; every later transition is validated
// against the state machine and written conditionally on the version read.
type Service interface {
	Evaluate(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*eligibility.Evaluation, error)
	Submit(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*CancellationRequest, *eligibility.Evaluation, error)
	BeginReview(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	Decide(ctx context.Context, id uuid.UUID, decision Decision) (*CancellationRequest, error)
	Withdraw(ctx context.Context, userID, id uuid.UUID) (*CancellationRequest, error)
	CancelApproved(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	Complete(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	SetRefundStatus(ctx context.Context, id uuid.UUID, status refunds.Status, completedAt *time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*CancellationRequest, error)
	GetLatestForBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]CancellationRequest, int64, int, error)
	ListReviewQueue(ctx context.Context, status Status, page, limit int) ([]CancellationRequest, int64, int, error)
}

type service struct {
	repo        Repository
	bookingRepo bookings.Repository
	policySvc   policies.Service
	evaluator   *eligibility.Evaluator
	logger      *logger.Logger
}

func NewService(repo Repository, bookingRepo bookings.Repository, policySvc policies.Service, evaluator *eligibility.Evaluator, log *logger.Logger) Service {
	return &service{
		repo:        repo,
		bookingRepo: bookingRepo,
		policySvc:   policySvc,
		evaluator:   evaluator,
		logger:      log,
	}
}

// Evaluate runs a dry-run eligibility check without creating anything.
// Customers see the exact fee breakdown they would get if they submitted now.
func (s *service) Evaluate(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*eligibility.Evaluation, error) {
	snapshot, policy, err := s.loadInputs(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Evaluate(*snapshot, draft, *policy)
}

// Submit evaluates the draft and, if eligible, freezes the result into a
// new REQUESTED row. The insert and the booking's pending-cancellation
// marker commit atomically; a concurrent submit for the same booking loses
// with ErrRequestAlreadyActive.
func (s *service) Submit(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*CancellationRequest, *eligibility.Evaluation, error) {
	if draft.HasEmergencyFlag() && !draft.HasEvidence() {
		return nil, nil, ErrEvidenceRequired
	}

	snapshot, policy, err := s.loadInputs(ctx, userID, bookingID)
	if err != nil {
		return nil, nil, err
	}

	eval, err := s.evaluator.Evaluate(*snapshot, draft, *policy)
	if err != nil {
		return nil, nil, err
	}
	if !eval.Eligible {
		return nil, eval, fmt.Errorf("%w: %s", ErrNotEligible, eval.IneligibleReason)
	}

	now := time.Now()
	req := &CancellationRequest{
		BookingID:            bookingID,
		UserID:               userID,
		Reason:               draft.Reason,
		ReasonCategory:       draft.ReasonCategory,
		IsMedicalEmergency:   draft.IsMedicalEmergency,
		IsWeatherRelated:     draft.IsWeatherRelated,
		IsForceMajeure:       draft.IsForceMajeure,
		RequestsExpedite:     draft.RequestsExpedite,
		OriginalAmount:       snapshot.OriginalAmount,
		CancellationFee:      eval.CancellationFee,
		ProcessingFee:        eval.ProcessingFee,
		FinalRefundAmount:    eval.FinalRefundAmount,
		HoursBeforeDeparture: eval.HoursBeforeDeparture,
		Status:               StatusRequested,
		RefundStatus:         refunds.StatusNotApplicable,
		PolicyName:           eval.PolicyName,
		EmergencyOverride:    eval.EmergencyOverrideApplied,
		Version:              1,
		RequestedAt:          now,
	}
	for _, ref := range draft.EvidenceRefs {
		req.Evidence = append(req.Evidence, EvidenceDocument{Reference: ref})
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, eval, err
	}

	s.logger.LogCancellationSubmitted(ctx, req.ID.String(), bookingID.String(), userID.String())
	return req, eval, nil
}

// BeginReview moves a fresh request under review. Calling it on a request
// already under review is a no-op so two admins opening the same request do
// not trip each other.
func (s *service) BeginReview(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == StatusUnderReview {
		return req, nil
	}
	if !req.Status.CanTransitionTo(StatusUnderReview) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, StatusUnderReview)
	}

	if err := s.repo.Transition(ctx, req, map[string]interface{}{
		"status": StatusUnderReview,
	}); err != nil {
		return nil, err
	}
	req.Status = StatusUnderReview
	return req, nil
}

// Decide settles a request under review. Approving a request whose frozen
// refund is zero requires the admin to confirm the zero-refund outcome; a
// silent zero-amount completion is never accepted.
func (s *service) Decide(ctx context.Context, id uuid.UUID, decision Decision) (*CancellationRequest, error) {
	if !decision.Outcome.IsValid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrInvalidTransition, decision.Outcome)
	}

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := StatusApproved
	if decision.Outcome == OutcomeReject {
		target = StatusRejected
	}
	if !req.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, target)
	}

	if target == StatusApproved && req.FinalRefundAmount.IsZero() && !decision.ConfirmZeroRefund {
		return nil, ErrZeroRefundApprovalRequired
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       target,
		"admin_notes":  decision.AdminNotes,
		"processed_at": now,
	}
	if target == StatusApproved {
		updates["zero_refund_approved"] = decision.ConfirmZeroRefund && req.FinalRefundAmount.IsZero()
	}
	if err := s.repo.Transition(ctx, req, updates); err != nil {
		return nil, err
	}

	req.Status = target
	req.AdminNotes = decision.AdminNotes
	req.ProcessedAt = &now
	if target == StatusApproved {
		req.ZeroRefundApproved = decision.ConfirmZeroRefund && req.FinalRefundAmount.IsZero()
	}

	s.logger.LogCancellationDecided(ctx, req.ID.String(), string(decision.Outcome), decision.AdminID)
	return req, nil
}

// Withdraw lets the owner pull a request back before a decision lands.
// Once approved, the request leaves the owner's hands; only an admin
// cancelling the refund can still withdraw it.
func (s *service) Withdraw(ctx context.Context, userID, id uuid.UUID) (*CancellationRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrNotRequestOwner
	}
	if req.Status != StatusRequested && req.Status != StatusUnderReview {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, StatusCancelled)
	}

	now := time.Now()
	if err := s.repo.Transition(ctx, req, map[string]interface{}{
		"status":       StatusCancelled,
		"processed_at": now,
	}); err != nil {
		return nil, err
	}
	req.Status = StatusCancelled
	req.ProcessedAt = &now
	return req, nil
}

// CancelApproved withdraws an approved request whose refund an admin has
// pulled from the settlement queue; it releases the booking like any other
// terminal outcome
func (s *service) CancelApproved(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, StatusCancelled)
	}

	now := time.Now()
	if err := s.repo.Transition(ctx, req, map[string]interface{}{
		"status":       StatusCancelled,
		"processed_at": now,
	}); err != nil {
		return nil, err
	}
	req.Status = StatusCancelled
	req.ProcessedAt = &now
	return req, nil
}

// Complete closes an approved request once its refund settled. The booking
// is marked cancelled in the same transaction.
func (s *service) Complete(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(StatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, StatusCompleted)
	}

	if err := s.repo.Transition(ctx, req, map[string]interface{}{
		"status": StatusCompleted,
	}); err != nil {
		return nil, err
	}
	req.Status = StatusCompleted
	return req, nil
}

// SetRefundStatus mirrors the settlement state onto the request row
func (s *service) SetRefundStatus(ctx context.Context, id uuid.UUID, status refunds.Status, completedAt *time.Time) error {
	return s.repo.SetRefundStatus(ctx, id, status.String(), completedAt)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// GetForUser fetches a request and enforces ownership
func (s *service) GetForUser(ctx context.Context, userID, id uuid.UUID) (*CancellationRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, ErrNotRequestOwner
	}
	return req, nil
}

func (s *service) GetLatestForBooking(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	return s.repo.GetLatestByBookingID(ctx, bookingID)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]CancellationRequest, int64, int, error) {
	results, total, err := s.repo.ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, 0, err
	}
	return results, total, s.repo.CalculateTotalPages(total, filters.Limit), nil
}

func (s *service) ListReviewQueue(ctx context.Context, status Status, page, limit int) ([]CancellationRequest, int64, int, error) {
	if !status.IsValid() {
		status = StatusRequested
	}
	results, total, err := s.repo.ListByStatus(ctx, status, page, limit)
	if err != nil {
		return nil, 0, 0, err
	}
	return results, total, s.repo.CalculateTotalPages(total, limit), nil
}

// loadInputs gathers the evaluation inputs and checks booking ownership
func (s *service) loadInputs(ctx context.Context, userID, bookingID uuid.UUID) (*bookings.Snapshot, *policies.Policy, error) {
	snapshot, err := s.bookingRepo.GetSnapshot(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if snapshot.UserID != userID {
		return nil, nil, ErrNotRequestOwner
	}
	policy, err := s.policySvc.GetPolicyForCategory(ctx, snapshot.TourCategory)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, policy, nil
}
