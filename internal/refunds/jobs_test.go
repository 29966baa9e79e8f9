package refunds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voyago/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedGateway returns canned results per request id
type scriptedGateway struct {
	mu      sync.Mutex
	results map[uuid.UUID]*GatewayResult
	errs    map[uuid.UUID]error
	calls   int
}

func (g *scriptedGateway) ProcessRefund(ctx context.Context, req GatewayRequest) (*GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if err, ok := g.errs[req.RequestID]; ok {
		return nil, err
	}
	if result, ok := g.results[req.RequestID]; ok {
		return result, nil
	}
	return &GatewayResult{Succeeded: true, ActualAmount: req.Amount}, nil
}

// recordingHooks records settlement callbacks
type recordingHooks struct {
	mu         sync.Mutex
	processing []uuid.UUID
	completed  []uuid.UUID
	failed     []uuid.UUID
	terminal   []bool
}

func (h *recordingHooks) OnRefundProcessing(ctx context.Context, requestID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processing = append(h.processing, requestID)
}

func (h *recordingHooks) OnRefundCompleted(ctx context.Context, requestID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, requestID)
}

func (h *recordingHooks) OnRefundFailed(ctx context.Context, requestID uuid.UUID, terminal bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, requestID)
	h.terminal = append(h.terminal, terminal)
}

func newJobFixture(gateway Gateway, hooks SettlementHooks) (*JobProcessor, *fakeRefundRepo, Service) {
	repo := newFakeRefundRepo()
	svc := newTestService(repo)
	jp := NewJobProcessor(svc, repo, gateway, hooks, testRefundConfig(), logger.New())
	return jp, repo, svc
}

func TestProcessDueSettlesPendingRefund(t *testing.T) {
	gateway := &scriptedGateway{}
	hooks := &recordingHooks{}
	jp, repo, svc := newJobFixture(gateway, hooks)

	params := createParams(250)
	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	jp.processDue(context.Background())

	settled, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, settled.Status)
	require.NotNil(t, settled.ActualAmount)
	assert.True(t, settled.ActualAmount.Equal(decimal.NewFromInt(250)))

	assert.Equal(t, []uuid.UUID{params.RequestID}, hooks.processing)
	assert.Equal(t, []uuid.UUID{params.RequestID}, hooks.completed)
	assert.Empty(t, hooks.failed)
}

func TestProcessDueRetriesTransportFailure(t *testing.T) {
	params := createParams(250)
	gateway := &scriptedGateway{
		errs: map[uuid.UUID]error{params.RequestID: errors.New("connection refused")},
	}
	hooks := &recordingHooks{}
	jp, repo, svc := newJobFixture(gateway, hooks)

	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	jp.processDue(context.Background())

	failed, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, 1, failed.Attempts)
	assert.Equal(t, "connection refused", failed.LastError)
	require.NotNil(t, failed.NextAttemptAt)

	require.Len(t, hooks.failed, 1)
	assert.False(t, hooks.terminal[0])

	// The retry is in the future, so an immediate pass picks up nothing
	jp.processDue(context.Background())
	after, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Attempts)
}

func TestProcessDueHandlesDecline(t *testing.T) {
	params := createParams(250)
	gateway := &scriptedGateway{
		results: map[uuid.UUID]*GatewayResult{
			params.RequestID: {Succeeded: false, FailureReason: "card account closed"},
		},
	}
	hooks := &recordingHooks{}
	jp, repo, svc := newJobFixture(gateway, hooks)

	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	jp.processDue(context.Background())

	declined, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, declined.Status)
	assert.Equal(t, "card account closed", declined.LastError)
}

func TestProcessDueExhaustionIsTerminal(t *testing.T) {
	params := createParams(250)
	gateway := &scriptedGateway{
		errs: map[uuid.UUID]error{params.RequestID: errors.New("still down")},
	}
	hooks := &recordingHooks{}
	jp, repo, svc := newJobFixture(gateway, hooks)

	_, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	cfg := testRefundConfig()
	for i := 0; i < cfg.MaxAttempts; i++ {
		// Force the row due regardless of backoff
		row, err := repo.GetByRequestID(context.Background(), params.RequestID)
		require.NoError(t, err)
		past := time.Now().Add(-time.Minute)
		require.NoError(t, repo.Update(context.Background(), row.ID, map[string]interface{}{
			"next_attempt_at": past,
		}))
		jp.processDue(context.Background())
	}

	exhausted, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, exhausted.Status)
	assert.Equal(t, cfg.MaxAttempts, exhausted.Attempts)
	assert.Nil(t, exhausted.NextAttemptAt)

	require.Len(t, hooks.terminal, cfg.MaxAttempts)
	assert.True(t, hooks.terminal[cfg.MaxAttempts-1])

	// Nothing left to pick up
	jp.processDue(context.Background())
	assert.Equal(t, cfg.MaxAttempts, gateway.calls)
}

func TestSettleSkipsLostClaim(t *testing.T) {
	gateway := &scriptedGateway{}
	hooks := &recordingHooks{}
	jp, repo, svc := newJobFixture(gateway, hooks)

	params := createParams(250)
	refund, err := svc.CreateForApproval(context.Background(), params)
	require.NoError(t, err)

	// Another instance claims the row first
	winner, err := repo.GetByRequestID(context.Background(), params.RequestID)
	require.NoError(t, err)
	require.NoError(t, repo.Claim(context.Background(), winner))

	jp.settle(context.Background(), refund)
	assert.Zero(t, gateway.calls)
	assert.Empty(t, hooks.processing)
}
