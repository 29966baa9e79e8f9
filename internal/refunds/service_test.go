package refunds

import (
	"context"
	"sync"
	"testing"
	"time"

	"voyago/internal/shared/config"
	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRefundRepo is an in-memory Repository with the same uniqueness and
// claim semantics as the database
type fakeRefundRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*RefundTransaction
}

func newFakeRefundRepo() *fakeRefundRepo {
	return &fakeRefundRepo{rows: make(map[uuid.UUID]*RefundTransaction)}
}

func (f *fakeRefundRepo) Create(ctx context.Context, refund *RefundTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.RequestID == refund.RequestID {
			return ErrRefundAlreadyExists
		}
	}
	refund.ID = uuid.New()
	clone := *refund
	f.rows[refund.ID] = &clone
	return nil
}

func (f *fakeRefundRepo) GetByID(ctx context.Context, id uuid.UUID) (*RefundTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, ErrRefundNotFound
	}
	clone := *row
	return &clone, nil
}

func (f *fakeRefundRepo) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*RefundTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.RequestID == requestID {
			clone := *row
			return &clone, nil
		}
	}
	return nil, ErrRefundNotFound
}

func (f *fakeRefundRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]RefundTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []RefundTransaction
	for _, row := range f.rows {
		if row.Status != StatusPending && row.Status != StatusFailed {
			continue
		}
		if row.NextAttemptAt == nil || row.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, *row)
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeRefundRepo) Claim(ctx context.Context, refund *RefundTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[refund.ID]
	if !ok {
		return ErrRefundNotFound
	}
	if row.Attempts != refund.Attempts || (row.Status != StatusPending && row.Status != StatusFailed) {
		return ErrRefundNotClaimable
	}
	row.Status = StatusProcessing
	row.Attempts++
	refund.Status = StatusProcessing
	refund.Attempts++
	return nil
}

func (f *fakeRefundRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return ErrRefundNotFound
	}
	if status, ok := updates["status"].(Status); ok {
		row.Status = status
	}
	if amount, ok := updates["actual_amount"].(decimal.Decimal); ok {
		row.ActualAmount = &amount
	}
	if ref, ok := updates["gateway_reference"].(string); ok {
		row.GatewayReference = ref
	}
	if lastError, ok := updates["last_error"].(string); ok {
		row.LastError = lastError
	}
	if override, ok := updates["admin_override"].(bool); ok {
		row.AdminOverride = override
	}
	if completedAt, ok := updates["completed_at"].(time.Time); ok {
		row.CompletedAt = &completedAt
	}
	if raw, ok := updates["next_attempt_at"]; ok {
		if at, ok := raw.(time.Time); ok {
			row.NextAttemptAt = &at
		} else {
			row.NextAttemptAt = nil
		}
	}
	return nil
}

func (f *fakeRefundRepo) ListByStatus(ctx context.Context, status Status, page, limit int) ([]RefundTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RefundTransaction
	for _, row := range f.rows {
		if row.Status == status {
			out = append(out, *row)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeRefundRepo) CalculateTotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return pages
}

func testRefundConfig() config.RefundConfig {
	return config.RefundConfig{
		DispatchInterval: 10 * time.Millisecond,
		MaxAttempts:      3,
		BackoffBase:      2 * time.Second,
		BackoffCap:       16 * time.Second,
		GatewayTimeout:   time.Second,
	}
}

func newTestService(repo Repository) Service {
	return NewService(repo, testRefundConfig(), logger.New())
}

func createParams(amount int64) CreateParams {
	return CreateParams{
		RequestID: uuid.New(),
		BookingID: uuid.New(),
		UserID:    uuid.New(),
		Amount:    decimal.NewFromInt(amount),
	}
}

func TestCreateForApprovalQueuesRefund(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	refund, err := svc.CreateForApproval(context.Background(), createParams(250))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, refund.Status)
	require.NotNil(t, refund.NextAttemptAt)
	assert.False(t, refund.NextAttemptAt.After(time.Now()))
}

func TestCreateForApprovalZeroRefund(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(0)
	_, err := svc.CreateForApproval(context.Background(), params)
	assert.ErrorIs(t, err, ErrZeroAmountCompletion)

	params.ZeroRefundApproved = true
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, StatusNotApplicable, refund.Status)
	assert.Nil(t, refund.NextAttemptAt)
}

func TestCreateForApprovalRejectsDuplicate(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	_, err = svc.CreateForApproval(context.Background(), params)
	assert.ErrorIs(t, err, ErrRefundAlreadyExists)
}

func TestReportOutcomeCompletion(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	settled, changed, err := svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:    StatusCompleted,
		Reference: "gw-123",
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCompleted, settled.Status)
	// Amount defaults to the approved amount when the gateway omits it
	require.NotNil(t, settled.ActualAmount)
	assert.True(t, settled.ActualAmount.Equal(decimal.NewFromInt(250)))
	assert.NotNil(t, settled.CompletedAt)
	assert.Nil(t, settled.NextAttemptAt)
}

func TestReportOutcomeIsIdempotent(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	amount := decimal.NewFromInt(250)
	outcome := Outcome{Status: StatusCompleted, ActualAmount: &amount, Reference: "gw-123"}

	_, changed, err := svc.ReportOutcome(context.Background(), params.RequestID, outcome)
	require.NoError(t, err)
	assert.True(t, changed)

	// Redelivery of the same outcome is acknowledged without a state change
	_, changed, err = svc.ReportOutcome(context.Background(), params.RequestID, outcome)
	require.NoError(t, err)
	assert.False(t, changed)

	// A conflicting amount is rejected
	other := decimal.NewFromInt(100)
	_, _, err = svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:       StatusCompleted,
		ActualAmount: &other,
	})
	assert.ErrorIs(t, err, ErrConflictingOutcome)

	// So is a failure after the completion settled
	_, _, err = svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:        StatusFailed,
		FailureReason: "late timeout",
	})
	assert.ErrorIs(t, err, ErrConflictingOutcome)
}

func TestReportOutcomeRejectsOverAmount(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	over := decimal.NewFromInt(300)
	_, _, err = svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:       StatusCompleted,
		ActualAmount: &over,
	})
	assert.ErrorIs(t, err, ErrRefundOverAmount)

	// An operator override accepts the larger payout
	settled, changed, err := svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:        StatusCompleted,
		ActualAmount:  &over,
		AdminOverride: true,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, settled.AdminOverride)
	assert.True(t, settled.ActualAmount.Equal(over))
}

func TestReportOutcomeRejectsZeroAmountCompletion(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	zero := decimal.Zero
	_, _, err = svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:       StatusCompleted,
		ActualAmount: &zero,
	})
	assert.ErrorIs(t, err, ErrZeroAmountCompletion)
}

func TestReportOutcomeFailureSchedulesRetry(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	before := time.Now()
	failed, changed, err := svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:        StatusFailed,
		FailureReason: "gateway timeout",
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "gateway timeout", failed.LastError)
	require.NotNil(t, failed.NextAttemptAt)
	assert.True(t, failed.NextAttemptAt.After(before))
}

func TestReportOutcomeExhaustsAttempts(t *testing.T) {
	repo := newFakeRefundRepo()
	cfg := testRefundConfig()
	svc := NewService(repo, cfg, logger.New())

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		current, err := repo.GetByRequestID(context.Background(), params.RequestID)
		require.NoError(t, err)
		require.NoError(t, repo.Claim(context.Background(), current))

		failed, _, err := svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
			Status:        StatusFailed,
			FailureReason: "still down",
		})
		require.NoError(t, err)

		if attempt < cfg.MaxAttempts {
			assert.NotNil(t, failed.NextAttemptAt, "attempt %d should schedule a retry", attempt)
		} else {
			assert.Nil(t, failed.NextAttemptAt, "final attempt must stop retrying")
		}
	}
	_ = refund
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	svc := NewService(newFakeRefundRepo(), testRefundConfig(), logger.New()).(*service)

	assert.Equal(t, 2*time.Second, svc.backoff(1))
	assert.Equal(t, 4*time.Second, svc.backoff(2))
	assert.Equal(t, 8*time.Second, svc.backoff(3))
	assert.Equal(t, 16*time.Second, svc.backoff(4))
	assert.Equal(t, 16*time.Second, svc.backoff(10))
}

func TestCancelUnsettledRefund(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.Cancel(context.Background(), params.RequestID)
	assert.ErrorIs(t, err, ErrInvalidRefundTransition)
}

func TestCancelClaimedRefund(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	// The worker already holds the claim when the operator cancels
	cancelled, err := svc.Cancel(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.NextAttemptAt)
}

func TestCancelSettledRefundIsRejected(t *testing.T) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), refund))

	_, _, err = svc.ReportOutcome(context.Background(), params.RequestID, Outcome{
		Status:    StatusCompleted,
		Reference: "gw-123",
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), params.RequestID)
	assert.ErrorIs(t, err, ErrInvalidRefundTransition)
}
