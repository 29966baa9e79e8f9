package requests

import (
	"context"
	"sync"
	"testing"
	"time"

	"voyago/internal/bookings"
	"voyago/internal/eligibility"
	"voyago/internal/policies"
	"voyago/internal/refunds"
	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeRequestRepo is an in-memory Repository honoring the same duplicate
// and version semantics as the database
type fakeRequestRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*CancellationRequest
	pending   map[uuid.UUID]bool
	cancelled map[uuid.UUID]bool
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{
		rows:      make(map[uuid.UUID]*CancellationRequest),
		pending:   make(map[uuid.UUID]bool),
		cancelled: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *CancellationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.BookingID == req.BookingID && !existing.Status.IsTerminal() {
			return ErrRequestAlreadyActive
		}
	}
	req.ID = uuid.New()
	clone := *req
	f.rows[req.ID] = &clone
	f.pending[req.BookingID] = true
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeRequestRepo) GetLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*CancellationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *CancellationRequest
	for _, row := range f.rows {
		if row.BookingID != bookingID {
			continue
		}
		if latest == nil || row.RequestedAt.After(latest.RequestedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, ErrRequestNotFound
	}
	clone := *latest
	return &clone, nil
}

func (f *fakeRequestRepo) ListByUser(ctx context.Context, userID uuid.UUID, filters ListFilters) ([]CancellationRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CancellationRequest
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		if filters.Status != nil && row.Status != *filters.Status {
			continue
		}
		if filters.Status == nil && !filters.IncludeRejected && row.Status == StatusRejected {
			continue
		}
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) ListByStatus(ctx context.Context, status Status, page, limit int) ([]CancellationRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CancellationRequest
	for _, row := range f.rows {
		if row.Status == status {
			out = append(out, *row)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRequestRepo) Transition(ctx context.Context, req *CancellationRequest, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[req.ID]
	if !ok {
		return ErrRequestNotFound
	}
	if row.Version != req.Version {
		return ErrConcurrentModification
	}
	row.Version++
	if status, ok := updates["status"].(Status); ok {
		row.Status = status
		switch status {
		case StatusRejected, StatusCancelled:
			f.pending[row.BookingID] = false
		case StatusCompleted:
			f.pending[row.BookingID] = false
			f.cancelled[row.BookingID] = true
		}
	}
	if notes, ok := updates["admin_notes"].(string); ok {
		row.AdminNotes = notes
	}
	if zra, ok := updates["zero_refund_approved"].(bool); ok {
		row.ZeroRefundApproved = zra
	}
	req.Version++
	return nil
}

func (f *fakeRequestRepo) SetRefundStatus(ctx context.Context, id uuid.UUID, refundStatus string, completedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrRequestNotFound
	}
	row.RefundStatus = refunds.Status(refundStatus)
	if completedAt != nil {
		row.RefundCompletedAt = completedAt
	}
	return nil
}

func (f *fakeRequestRepo) CalculateTotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return pages
}

// fakeBookingRepo serves snapshots from a fixed map
type fakeBookingRepo struct {
	snapshots map[uuid.UUID]bookings.Snapshot
}

func (f *fakeBookingRepo) GetSnapshot(ctx context.Context, id uuid.UUID) (*bookings.Snapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, bookings.ErrBookingNotFound
	}
	return &snap, nil
}

func (f *fakeBookingRepo) SetPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

func (f *fakeBookingRepo) ClearPendingCancellation(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

func (f *fakeBookingRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return nil
}

// fakePolicyService returns the same policy for every category
type fakePolicyService struct {
	policy policies.Policy
}

func (f *fakePolicyService) GetPolicyForCategory(ctx context.Context, category string) (*policies.Policy, error) {
	clone := f.policy
	return &clone, nil
}

func (f *fakePolicyService) CreatePolicy(ctx context.Context, req policies.PolicyRequest) (*policies.Policy, error) {
	return nil, nil
}

func (f *fakePolicyService) UpdatePolicy(ctx context.Context, id uuid.UUID, req policies.PolicyRequest) (*policies.Policy, error) {
	return nil, nil
}

func (f *fakePolicyService) GetPolicy(ctx context.Context, id uuid.UUID) (*policies.Policy, error) {
	return nil, nil
}

func (f *fakePolicyService) ListPolicies(ctx context.Context) ([]policies.Policy, error) {
	return nil, nil
}

func fullRefundPolicy() policies.Policy {
	return policies.Policy{
		Name:     "Standard",
		Category: "CULTURAL",
		Active:   true,
		Tiers: []policies.Tier{
			{
				MinHoursBeforeDeparture: 48,
				RefundPercent:           decimal.NewFromInt(100),
			},
			{
				MinHoursBeforeDeparture: 0,
				RefundPercent:           decimal.NewFromInt(50),
			},
		},
	}
}

type serviceFixture struct {
	svc       Service
	repo      *fakeRequestRepo
	bookingID uuid.UUID
	userID    uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	userID := uuid.New()
	bookingID := uuid.New()
	bookingRepo := &fakeBookingRepo{
		snapshots: map[uuid.UUID]bookings.Snapshot{
			bookingID: {
				ID:             bookingID,
				UserID:         userID,
				TourCategory:   "CULTURAL",
				StartDate:      time.Now().Add(100 * time.Hour),
				OriginalAmount: decimal.NewFromInt(500),
				Status:         bookings.StatusConfirmed,
			},
		},
	}

	repo := newFakeRequestRepo()
	evaluator := eligibility.NewEvaluator(10, nil)
	svc := NewService(repo, bookingRepo, &fakePolicyService{policy: fullRefundPolicy()}, evaluator, logger.New())
	return &serviceFixture{svc: svc, repo: repo, bookingID: bookingID, userID: userID}
}

func submitDraft() eligibility.Draft {
	return eligibility.Draft{
		Reason:         "travel plans changed for the whole family",
		ReasonCategory: eligibility.ReasonOther,
	}
}

func TestSubmitFreezesEvaluation(t *testing.T) {
	f := newServiceFixture(t)

	req, eval, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)
	require.NotNil(t, eval)

	assert.Equal(t, StatusRequested, req.Status)
	assert.Equal(t, refunds.StatusNotApplicable, req.RefundStatus)
	assert.Equal(t, 1, req.Version)
	assert.Equal(t, "Standard", req.PolicyName)
	assert.True(t, req.FinalRefundAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, eval.HoursBeforeDeparture, req.HoursBeforeDeparture)
}

func TestSubmitRejectsSecondActiveRequest(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	_, _, err = f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	assert.ErrorIs(t, err, ErrRequestAlreadyActive)
}

func TestSubmitRequiresEvidenceForEmergencyFlags(t *testing.T) {
	f := newServiceFixture(t)

	draft := submitDraft()
	draft.IsMedicalEmergency = true

	_, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, draft)
	assert.ErrorIs(t, err, ErrEvidenceRequired)
}

func TestSubmitRejectsForeignBooking(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Submit(context.Background(), uuid.New(), f.bookingID, submitDraft())
	assert.ErrorIs(t, err, ErrNotRequestOwner)
}

func TestBeginReviewIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	reviewed, err := f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, reviewed.Status)

	// A second reviewer opening the same request is a no-op
	again, err := f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, again.Status)
	assert.Equal(t, reviewed.Version, again.Version)
}

func TestDecideApprove(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)
	_, err = f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), req.ID, Decision{
		Outcome:    OutcomeApprove,
		AdminNotes: "documents verified",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, "documents verified", decided.AdminNotes)
	assert.NotNil(t, decided.ProcessedAt)
}

func TestDecideRejectReleasesBooking(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)
	_, err = f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), req.ID, Decision{Outcome: OutcomeReject})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)
	assert.False(t, f.repo.pending[f.bookingID])

	// Terminal request frees the booking for a fresh submission
	_, _, err = f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	assert.NoError(t, err)
}

func TestDecideZeroRefundNeedsConfirmation(t *testing.T) {
	f := newServiceFixture(t)

	// Fees eat the whole refund: 50% of 500 minus a 300 fixed fee
	feeHeavy := fullRefundPolicy()
	feeHeavy.Tiers = []policies.Tier{
		{
			MinHoursBeforeDeparture: 0,
			RefundPercent:           decimal.NewFromInt(50),
			CancellationFeeType:     policies.FeeTypeFixed,
			CancellationFeeAmount:   decimal.NewFromInt(300),
		},
	}
	bookingRepo := &fakeBookingRepo{
		snapshots: map[uuid.UUID]bookings.Snapshot{
			f.bookingID: {
				ID:             f.bookingID,
				UserID:         f.userID,
				TourCategory:   "CULTURAL",
				StartDate:      time.Now().Add(100 * time.Hour),
				OriginalAmount: decimal.NewFromInt(500),
				Status:         bookings.StatusConfirmed,
			},
		},
	}
	svc := NewService(f.repo, bookingRepo, &fakePolicyService{policy: feeHeavy}, eligibility.NewEvaluator(10, nil), logger.New())

	req, _, err := svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)
	require.True(t, req.FinalRefundAmount.IsZero())

	_, err = svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)

	_, err = svc.Decide(context.Background(), req.ID, Decision{Outcome: OutcomeApprove})
	assert.ErrorIs(t, err, ErrZeroRefundApprovalRequired)

	decided, err := svc.Decide(context.Background(), req.ID, Decision{
		Outcome:           OutcomeApprove,
		ConfirmZeroRefund: true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.True(t, decided.ZeroRefundApproved)
}

func TestDecideRequiresReviewFirst(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), req.ID, Decision{Outcome: OutcomeApprove})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWithdrawOnlyByOwnerBeforeDecision(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	_, err = f.svc.Withdraw(context.Background(), uuid.New(), req.ID)
	assert.ErrorIs(t, err, ErrNotRequestOwner)

	withdrawn, err := f.svc.Withdraw(context.Background(), f.userID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, withdrawn.Status)

	// Nothing left to withdraw
	_, err = f.svc.Withdraw(context.Background(), f.userID, req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelApprovedRequest(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)
	_, err = f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(context.Background(), req.ID, Decision{Outcome: OutcomeApprove})
	require.NoError(t, err)

	// The owner cannot pull an approved request back
	_, err = f.svc.Withdraw(context.Background(), f.userID, req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cancelled, err := f.svc.CancelApproved(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.ProcessedAt)
	assert.False(t, f.repo.pending[f.bookingID])

	_, err = f.svc.CancelApproved(context.Background(), req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelApprovedRequiresApproval(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	_, err = f.svc.CancelApproved(context.Background(), req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteRequiresApproval(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(context.Background(), req.ID, Decision{Outcome: OutcomeApprove})
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.True(t, f.repo.cancelled[f.bookingID])
}

func TestTransitionDetectsConcurrentModification(t *testing.T) {
	f := newServiceFixture(t)
	req, _, err := f.svc.Submit(context.Background(), f.userID, f.bookingID, submitDraft())
	require.NoError(t, err)

	stale, err := f.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)

	// Someone else moves the request first
	_, err = f.svc.BeginReview(context.Background(), req.ID)
	require.NoError(t, err)

	err = f.repo.Transition(context.Background(), stale, map[string]interface{}{
		"status": StatusCancelled,
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
}
