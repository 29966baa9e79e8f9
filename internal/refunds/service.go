package refunds

import (
	"context"
	"fmt"
	"time"

	"voyago/internal/shared/config"
	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateParams carries everything the approval needs to open a refund
type CreateParams struct {
	RequestID          uuid.UUID
	BookingID          uuid.UUID
	UserID             uuid.UUID
	Amount             decimal.Decimal
	ZeroRefundApproved bool
	Expedited          bool
}

// Outcome is a settlement result, from the worker or the gateway callback.
// AdminOverride lets an operator accept an actual amount above the frozen
// refund amount, for goodwill payouts settled outside the normal flow.
type Outcome struct {
	Status        Status
	ActualAmount  *decimal.Decimal
	Reference     string
	FailureReason string
	AdminOverride bool
}

// Service owns refund settlement. Reporting an outcome is idempotent: the
// same outcome reported twice is acknowledged without a second state
// change, and a conflicting outcome is rejected rather than overwriting a
// settled refund.
type Service interface {
	CreateForApproval(ctx context.Context, params CreateParams) (*RefundTransaction, error)
	ReportOutcome(ctx context.Context, requestID uuid.UUID, outcome Outcome) (*RefundTransaction, bool, error)
	Cancel(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error)
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error)
	ListByStatus(ctx context.Context, status Status, page, limit int) ([]RefundTransaction, int64, int, error)
}

type service struct {
	repo   Repository
	cfg    config.RefundConfig
	logger *logger.Logger
}

func NewService(repo Repository, cfg config.RefundConfig, log *logger.Logger) Service {
	return &service{
		repo:   repo,
		cfg:    cfg,
		logger: log,
	}
}

// CreateForApproval opens the settlement record for an approved request. A
// confirmed zero refund is recorded as NOT_APPLICABLE and never enters the
// worker queue; everything else starts PENDING and is due immediately.
func (s *service) CreateForApproval(ctx context.Context, params CreateParams) (*RefundTransaction, error) {
	if params.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidRefundTransition)
	}

	refund := &RefundTransaction{
		RequestID:          params.RequestID,
		BookingID:          params.BookingID,
		UserID:             params.UserID,
		Amount:             params.Amount,
		ZeroRefundApproved: params.ZeroRefundApproved,
		Expedited:          params.Expedited,
	}

	if params.Amount.IsZero() {
		if !params.ZeroRefundApproved {
			return nil, ErrZeroAmountCompletion
		}
		refund.Status = StatusNotApplicable
	} else {
		now := time.Now()
		refund.Status = StatusPending
		refund.NextAttemptAt = &now
	}

	if err := s.repo.Create(ctx, refund); err != nil {
		return nil, err
	}
	return refund, nil
}

// ReportOutcome records a settlement result. The second return value is
// false when the outcome was already on record and nothing changed.
func (s *service) ReportOutcome(ctx context.Context, requestID uuid.UUID, outcome Outcome) (*RefundTransaction, bool, error) {
	if outcome.Status != StatusCompleted && outcome.Status != StatusFailed {
		return nil, false, fmt.Errorf("%w: outcome must be %s or %s", ErrInvalidRefundTransition, StatusCompleted, StatusFailed)
	}

	refund, err := s.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, false, err
	}

	// Duplicate delivery of the outcome already on record is a no-op
	if refund.Status == outcome.Status && outcome.Status == StatusCompleted {
		if outcome.ActualAmount == nil || refund.ActualAmount == nil || outcome.ActualAmount.Equal(*refund.ActualAmount) {
			return refund, false, nil
		}
		return nil, false, ErrConflictingOutcome
	}
	if refund.Status.IsTerminal() {
		if refund.Status == StatusCompleted || refund.Status == StatusCancelled {
			return nil, false, ErrConflictingOutcome
		}
		return nil, false, fmt.Errorf("%w: refund is %s", ErrInvalidRefundTransition, refund.Status)
	}
	if !refund.Status.CanTransitionTo(outcome.Status) {
		if refund.Status == StatusFailed && outcome.Status == StatusFailed {
			// Repeated failure report while already failed; keep the record
			return refund, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidRefundTransition, refund.Status, outcome.Status)
	}

	if outcome.Status == StatusCompleted {
		return s.applyCompletion(ctx, refund, outcome)
	}
	return s.applyFailure(ctx, refund, outcome)
}

func (s *service) applyCompletion(ctx context.Context, refund *RefundTransaction, outcome Outcome) (*RefundTransaction, bool, error) {
	actual := refund.Amount
	if outcome.ActualAmount != nil {
		actual = *outcome.ActualAmount
	}
	if actual.GreaterThan(refund.Amount) && !outcome.AdminOverride {
		return nil, false, fmt.Errorf("%w: %s > %s", ErrRefundOverAmount, actual, refund.Amount)
	}
	if actual.IsZero() && !refund.ZeroRefundApproved {
		return nil, false, ErrZeroAmountCompletion
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":            StatusCompleted,
		"actual_amount":     actual,
		"gateway_reference": outcome.Reference,
		"completed_at":      now,
		"next_attempt_at":   nil,
		"last_error":        "",
	}
	if outcome.AdminOverride {
		updates["admin_override"] = true
	}
	if err := s.repo.Update(ctx, refund.ID, updates); err != nil {
		return nil, false, err
	}

	refund.Status = StatusCompleted
	refund.ActualAmount = &actual
	refund.GatewayReference = outcome.Reference
	refund.CompletedAt = &now
	refund.NextAttemptAt = nil
	refund.LastError = ""
	refund.AdminOverride = refund.AdminOverride || outcome.AdminOverride

	s.logger.LogRefundSettled(ctx, refund.RequestID.String(), string(StatusCompleted), actual.String())
	return refund, true, nil
}

// applyFailure marks the attempt failed and schedules the retry. Once the
// attempt budget is spent the row stays FAILED with no next attempt and an
// operator is paged instead.
func (s *service) applyFailure(ctx context.Context, refund *RefundTransaction, outcome Outcome) (*RefundTransaction, bool, error) {
	updates := map[string]interface{}{
		"status":     StatusFailed,
		"last_error": outcome.FailureReason,
	}

	var next *time.Time
	if refund.Attempts < s.cfg.MaxAttempts {
		at := time.Now().Add(s.backoff(refund.Attempts))
		next = &at
		updates["next_attempt_at"] = at
	} else {
		updates["next_attempt_at"] = nil
	}

	if err := s.repo.Update(ctx, refund.ID, updates); err != nil {
		return nil, false, err
	}

	refund.Status = StatusFailed
	refund.LastError = outcome.FailureReason
	refund.NextAttemptAt = next

	if next == nil {
		s.logger.LogOperatorAttention(ctx, refund.RequestID.String(), refund.Attempts, refund.LastError)
	} else {
		s.logger.LogRefundSettled(ctx, refund.RequestID.String(), string(StatusFailed), refund.Amount.String())
	}
	return refund, true, nil
}

// backoff doubles per attempt from the configured base, capped
func (s *service) backoff(attempts int) time.Duration {
	d := s.cfg.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if d > s.cfg.BackoffCap {
		return s.cfg.BackoffCap
	}
	return d
}

// Cancel pulls an unsettled refund out of the queue, an operator action for
// chargebacks handled outside the platform
func (s *service) Cancel(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error) {
	refund, err := s.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !refund.Status.CanTransitionTo(StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidRefundTransition, refund.Status, StatusCancelled)
	}
	if err := s.repo.Update(ctx, refund.ID, map[string]interface{}{
		"status":          StatusCancelled,
		"next_attempt_at": nil,
	}); err != nil {
		return nil, err
	}
	refund.Status = StatusCancelled
	refund.NextAttemptAt = nil
	return refund, nil
}

func (s *service) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error) {
	return s.repo.GetByRequestID(ctx, requestID)
}

func (s *service) ListByStatus(ctx context.Context, status Status, page, limit int) ([]RefundTransaction, int64, int, error) {
	results, total, err := s.repo.ListByStatus(ctx, status, page, limit)
	if err != nil {
		return nil, 0, 0, err
	}
	return results, total, s.repo.CalculateTotalPages(total, limit), nil
}
