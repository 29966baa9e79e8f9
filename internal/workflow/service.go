package workflow

import (
	"context"
	"errors"
	"time"

	"voyago/internal/eligibility"
	"voyago/internal/notifications"
	"voyago/internal/refunds"
	"voyago/internal/requests"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// RequestDetail is a request together with its refund record, assembled
// from the authoritative rows on every read
type RequestDetail struct {
	Request *requests.CancellationRequest
	Refund  *refunds.RefundTransaction
}

// Service is the facade over the cancellation workflow. It sequences the
// request lifecycle, refund settlement and event publishing; controllers
// and the settlement worker only ever talk to domain state through it.
type Service interface {
	Evaluate(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*eligibility.Evaluation, error)
	Submit(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*requests.CancellationRequest, *eligibility.Evaluation, error)
	BeginReview(ctx context.Context, requestID uuid.UUID) (*requests.CancellationRequest, error)
	Decide(ctx context.Context, requestID uuid.UUID, decision requests.Decision) (*RequestDetail, error)
	Withdraw(ctx context.Context, userID, requestID uuid.UUID) (*requests.CancellationRequest, error)
	CancelRefund(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error)
	ReportRefundOutcome(ctx context.Context, requestID uuid.UUID, outcome refunds.Outcome) (*RequestDetail, error)

	GetForUser(ctx context.Context, userID, requestID uuid.UUID) (*RequestDetail, error)
	GetDetail(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error)
	GetLatestForBooking(ctx context.Context, userID, bookingID uuid.UUID) (*RequestDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filters requests.ListFilters) ([]requests.CancellationRequest, int64, int, error)
	ListReviewQueue(ctx context.Context, status requests.Status, page, limit int) ([]requests.CancellationRequest, int64, int, error)
	ListRefundsByStatus(ctx context.Context, status refunds.Status, page, limit int) ([]refunds.RefundTransaction, int64, int, error)
}

func NewService(requestSvc requests.Service, refundSvc refunds.Service, publisher notifications.Publisher, log *logger.Logger) *Facade {
	return &Facade{
		requestSvc: requestSvc,
		refundSvc:  refundSvc,
		publisher:  publisher,
		logger:     log,
	}
}

// Facade is the concrete workflow service. It also receives settlement
// callbacks from the refund worker.
type Facade struct {
	requestSvc requests.Service
	refundSvc  refunds.Service
	publisher  notifications.Publisher
	logger     *logger.Logger
}

var _ Service = (*Facade)(nil)
var _ refunds.SettlementHooks = (*Facade)(nil)

func (f *Facade) Evaluate(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*eligibility.Evaluation, error) {
	return f.requestSvc.Evaluate(ctx, userID, bookingID, draft)
}

func (f *Facade) Submit(ctx context.Context, userID, bookingID uuid.UUID, draft eligibility.Draft) (*requests.CancellationRequest, *eligibility.Evaluation, error) {
	req, eval, err := f.requestSvc.Submit(ctx, userID, bookingID, draft)
	if err != nil {
		return nil, eval, err
	}
	f.publish(ctx, req, notifications.EventCancellationSubmitted, "")
	return req, eval, nil
}

func (f *Facade) BeginReview(ctx context.Context, requestID uuid.UUID) (*requests.CancellationRequest, error) {
	req, err := f.requestSvc.BeginReview(ctx, requestID)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, req, notifications.EventCancellationUnderReview, "")
	return req, nil
}

// Decide applies the admin verdict. An approval opens the refund record;
// a confirmed zero refund has nothing to settle and completes the request
// on the spot.
func (f *Facade) Decide(ctx context.Context, requestID uuid.UUID, decision requests.Decision) (*RequestDetail, error) {
	req, err := f.requestSvc.Decide(ctx, requestID, decision)
	if err != nil {
		return nil, err
	}

	if req.Status == requests.StatusRejected {
		f.publish(ctx, req, notifications.EventCancellationRejected, decision.AdminNotes)
		return &RequestDetail{Request: req}, nil
	}

	refund, err := f.refundSvc.CreateForApproval(ctx, refunds.CreateParams{
		RequestID:          req.ID,
		BookingID:          req.BookingID,
		UserID:             req.UserID,
		Amount:             req.FinalRefundAmount,
		ZeroRefundApproved: req.ZeroRefundApproved,
		Expedited:          req.RequestsExpedite,
	})
	if err != nil {
		if !errors.Is(err, refunds.ErrRefundAlreadyExists) {
			return nil, err
		}
		refund, err = f.refundSvc.GetByRequestID(ctx, req.ID)
		if err != nil {
			return nil, err
		}
	}

	f.publish(ctx, req, notifications.EventCancellationApproved, decision.AdminNotes)

	if refund.Status == refunds.StatusNotApplicable {
		req, err = f.requestSvc.Complete(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		f.publish(ctx, req, notifications.EventCancellationCompleted, "no refund due")
	} else {
		if err := f.requestSvc.SetRefundStatus(ctx, req.ID, refund.Status, nil); err != nil {
			f.logger.ErrorWithContext(ctx, "failed to mirror refund status", err, map[string]interface{}{
				"request_id": req.ID.String(),
			})
		}
		req.RefundStatus = refund.Status
	}

	return &RequestDetail{Request: req, Refund: refund}, nil
}

func (f *Facade) Withdraw(ctx context.Context, userID, requestID uuid.UUID) (*requests.CancellationRequest, error) {
	req, err := f.requestSvc.Withdraw(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, req, notifications.EventCancellationWithdrawn, "")
	return req, nil
}

// CancelRefund pulls an approved request's unsettled refund out of the
// queue and withdraws the request, an admin action for refunds handled
// outside the platform. A settled refund stays put.
func (f *Facade) CancelRefund(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error) {
	refund, err := f.refundSvc.Cancel(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := f.requestSvc.SetRefundStatus(ctx, requestID, refunds.StatusCancelled, nil); err != nil {
		f.logger.ErrorWithContext(ctx, "failed to mirror refund cancellation", err, map[string]interface{}{
			"request_id": requestID.String(),
		})
	}

	req, err := f.requestSvc.CancelApproved(ctx, requestID)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, req, notifications.EventCancellationWithdrawn, "refund cancelled by operator")
	return &RequestDetail{Request: req, Refund: refund}, nil
}

// ReportRefundOutcome accepts a settlement result from the gateway side.
// A repeated report of the recorded outcome is acknowledged without
// touching anything.
func (f *Facade) ReportRefundOutcome(ctx context.Context, requestID uuid.UUID, outcome refunds.Outcome) (*RequestDetail, error) {
	refund, changed, err := f.refundSvc.ReportOutcome(ctx, requestID, outcome)
	if err != nil {
		return nil, err
	}

	req, err := f.requestSvc.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &RequestDetail{Request: req, Refund: refund}, nil
	}

	switch refund.Status {
	case refunds.StatusCompleted:
		req = f.finishSettledRequest(ctx, req, refund)
	case refunds.StatusFailed:
		if err := f.requestSvc.SetRefundStatus(ctx, requestID, refunds.StatusFailed, nil); err == nil {
			req.RefundStatus = refunds.StatusFailed
		}
		f.publish(ctx, req, notifications.EventRefundFailed, refund.LastError)
	}

	return &RequestDetail{Request: req, Refund: refund}, nil
}

// finishSettledRequest mirrors the completion onto the request and closes
// it. Completion may legitimately race the worker hook; the loser's
// invalid-transition error just means the work is already done.
func (f *Facade) finishSettledRequest(ctx context.Context, req *requests.CancellationRequest, refund *refunds.RefundTransaction) *requests.CancellationRequest {
	completedAt := refund.CompletedAt
	if completedAt == nil {
		now := time.Now()
		completedAt = &now
	}
	if err := f.requestSvc.SetRefundStatus(ctx, req.ID, refunds.StatusCompleted, completedAt); err != nil {
		f.logger.ErrorWithContext(ctx, "failed to mirror refund completion", err, map[string]interface{}{
			"request_id": req.ID.String(),
		})
	}
	req.RefundStatus = refunds.StatusCompleted
	req.RefundCompletedAt = completedAt
	f.publish(ctx, req, notifications.EventRefundCompleted, "")

	done, err := f.requestSvc.Complete(ctx, req.ID)
	if err != nil {
		if errors.Is(err, requests.ErrInvalidTransition) || errors.Is(err, requests.ErrConcurrentModification) {
			if reloaded, getErr := f.requestSvc.GetByID(ctx, req.ID); getErr == nil {
				return reloaded
			}
			return req
		}
		f.logger.ErrorWithContext(ctx, "failed to complete request after settlement", err, map[string]interface{}{
			"request_id": req.ID.String(),
		})
		return req
	}
	f.publish(ctx, done, notifications.EventCancellationCompleted, "")
	return done
}

// OnRefundProcessing mirrors the worker's claim onto the request row
func (f *Facade) OnRefundProcessing(ctx context.Context, requestID uuid.UUID) {
	if err := f.requestSvc.SetRefundStatus(ctx, requestID, refunds.StatusProcessing, nil); err != nil {
		f.logger.ErrorWithContext(ctx, "failed to mirror refund processing", err, map[string]interface{}{
			"request_id": requestID.String(),
		})
		return
	}
	if req, err := f.requestSvc.GetByID(ctx, requestID); err == nil {
		f.publish(ctx, req, notifications.EventRefundProcessing, "")
	}
}

// OnRefundCompleted closes the request once the worker settles its refund
func (f *Facade) OnRefundCompleted(ctx context.Context, requestID uuid.UUID) {
	refund, err := f.refundSvc.GetByRequestID(ctx, requestID)
	if err != nil {
		f.logger.ErrorWithContext(ctx, "failed to load settled refund", err, map[string]interface{}{
			"request_id": requestID.String(),
		})
		return
	}
	req, err := f.requestSvc.GetByID(ctx, requestID)
	if err != nil {
		f.logger.ErrorWithContext(ctx, "failed to load request after settlement", err, map[string]interface{}{
			"request_id": requestID.String(),
		})
		return
	}
	f.finishSettledRequest(ctx, req, refund)
}

// OnRefundFailed mirrors a failed attempt; terminal means the attempt
// budget is spent and an operator has been paged
func (f *Facade) OnRefundFailed(ctx context.Context, requestID uuid.UUID, terminal bool) {
	if err := f.requestSvc.SetRefundStatus(ctx, requestID, refunds.StatusFailed, nil); err != nil {
		f.logger.ErrorWithContext(ctx, "failed to mirror refund failure", err, map[string]interface{}{
			"request_id": requestID.String(),
		})
		return
	}
	req, err := f.requestSvc.GetByID(ctx, requestID)
	if err != nil {
		return
	}
	detail := "settlement attempt failed"
	if terminal {
		detail = "settlement attempts exhausted; manual intervention required"
	}
	f.publish(ctx, req, notifications.EventRefundFailed, detail)
}

func (f *Facade) GetForUser(ctx context.Context, userID, requestID uuid.UUID) (*RequestDetail, error) {
	req, err := f.requestSvc.GetForUser(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}
	return f.withRefund(ctx, req), nil
}

func (f *Facade) GetDetail(ctx context.Context, requestID uuid.UUID) (*RequestDetail, error) {
	req, err := f.requestSvc.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return f.withRefund(ctx, req), nil
}

func (f *Facade) GetLatestForBooking(ctx context.Context, userID, bookingID uuid.UUID) (*RequestDetail, error) {
	req, err := f.requestSvc.GetLatestForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if req.UserID != userID {
		return nil, requests.ErrNotRequestOwner
	}
	return f.withRefund(ctx, req), nil
}

func (f *Facade) ListForUser(ctx context.Context, userID uuid.UUID, filters requests.ListFilters) ([]requests.CancellationRequest, int64, int, error) {
	return f.requestSvc.ListForUser(ctx, userID, filters)
}

func (f *Facade) ListReviewQueue(ctx context.Context, status requests.Status, page, limit int) ([]requests.CancellationRequest, int64, int, error) {
	return f.requestSvc.ListReviewQueue(ctx, status, page, limit)
}

func (f *Facade) ListRefundsByStatus(ctx context.Context, status refunds.Status, page, limit int) ([]refunds.RefundTransaction, int64, int, error) {
	return f.refundSvc.ListByStatus(ctx, status, page, limit)
}

// withRefund attaches the refund row when one exists
func (f *Facade) withRefund(ctx context.Context, req *requests.CancellationRequest) *RequestDetail {
	detail := &RequestDetail{Request: req}
	refund, err := f.refundSvc.GetByRequestID(ctx, req.ID)
	if err == nil {
		detail.Refund = refund
	}
	return detail
}

// publish fires an event; delivery problems are logged, never surfaced
func (f *Facade) publish(ctx context.Context, req *requests.CancellationRequest, eventType notifications.EventType, detail string) {
	event := notifications.NewCancellationEvent(eventType, req.ID, req.BookingID, req.UserID)
	event.Status = req.Status.String()
	event.RefundStatus = req.RefundStatus.String()
	event.RefundAmount = &req.FinalRefundAmount
	event.Detail = detail
	if err := f.publisher.Publish(ctx, event); err != nil {
		f.logger.ErrorWithContext(ctx, "failed to publish cancellation event", err, map[string]interface{}{
			"event_type": string(eventType),
			"request_id": req.ID.String(),
		})
	}
}
