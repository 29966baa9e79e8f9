package refunds

import (
	"context"
	"errors"
	"time"

	"voyago/internal/shared/config"
	"voyago/pkg/logger"

	"github.com/google/uuid"
)

// SettlementHooks lets the owning workflow react to settlement progress
// without this package knowing about request rows. Hooks run after the
// refund state is durable, so a crash inside a hook is recovered by the
// mirror catching up on the next read.
type SettlementHooks interface {
	OnRefundProcessing(ctx context.Context, requestID uuid.UUID)
	OnRefundCompleted(ctx context.Context, requestID uuid.UUID)
	OnRefundFailed(ctx context.Context, requestID uuid.UUID, terminal bool)
}

// JobProcessor drives refund settlement in the background. Each pass picks
// up due rows, claims them one by one and runs a gateway attempt; claims
// lost to another instance are skipped silently.
type JobProcessor struct {
	service Service
	repo    Repository
	gateway Gateway
	hooks   SettlementHooks
	cfg     config.RefundConfig
	logger  *logger.Logger
	done    chan struct{}

	// BatchSize bounds how many refunds one pass will attempt
	BatchSize int
}

// NewJobProcessor creates a settlement job processor
func NewJobProcessor(service Service, repo Repository, gateway Gateway, hooks SettlementHooks, cfg config.RefundConfig, log *logger.Logger) *JobProcessor {
	return &JobProcessor{
		service:   service,
		repo:      repo,
		gateway:   gateway,
		hooks:     hooks,
		cfg:       cfg,
		logger:    log,
		done:      make(chan struct{}),
		BatchSize: 50,
	}
}

// Start starts the settlement loop
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.run(ctx)
	jp.logger.InfoWithContext(ctx, "refund settlement worker started", map[string]interface{}{
		"interval":   jp.cfg.DispatchInterval.String(),
		"batch_size": jp.BatchSize,
	})
}

// Stop stops the settlement loop
func (jp *JobProcessor) Stop() {
	close(jp.done)
}

func (jp *JobProcessor) run(ctx context.Context) {
	ticker := time.NewTicker(jp.cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.processDue(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// processDue runs one settlement pass
func (jp *JobProcessor) processDue(ctx context.Context) {
	due, err := jp.repo.ListDue(ctx, time.Now(), jp.BatchSize)
	if err != nil {
		jp.logger.ErrorWithContext(ctx, "failed to list due refunds", err, nil)
		return
	}

	for i := range due {
		select {
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		default:
		}
		jp.settle(ctx, &due[i])
	}
}

// settle claims the refund and runs one gateway attempt
func (jp *JobProcessor) settle(ctx context.Context, refund *RefundTransaction) {
	if err := jp.repo.Claim(ctx, refund); err != nil {
		if !errors.Is(err, ErrRefundNotClaimable) {
			jp.logger.ErrorWithContext(ctx, "failed to claim refund", err, map[string]interface{}{
				"refund_id": refund.ID.String(),
			})
		}
		return
	}
	if jp.hooks != nil {
		jp.hooks.OnRefundProcessing(ctx, refund.RequestID)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, jp.cfg.GatewayTimeout)
	result, err := jp.gateway.ProcessRefund(gatewayCtx, GatewayRequest{
		RefundID:  refund.ID,
		RequestID: refund.RequestID,
		BookingID: refund.BookingID,
		UserID:    refund.UserID,
		Amount:    refund.Amount,
		Expedited: refund.Expedited,
	})
	cancel()

	outcome := Outcome{}
	switch {
	case err != nil:
		outcome.Status = StatusFailed
		outcome.FailureReason = err.Error()
	case result.Succeeded:
		outcome.Status = StatusCompleted
		outcome.ActualAmount = &result.ActualAmount
		outcome.Reference = result.Reference
	default:
		outcome.Status = StatusFailed
		outcome.FailureReason = result.FailureReason
		outcome.Reference = result.Reference
	}

	settled, changed, reportErr := jp.service.ReportOutcome(ctx, refund.RequestID, outcome)
	if reportErr != nil {
		jp.logger.ErrorWithContext(ctx, "failed to record refund outcome", reportErr, map[string]interface{}{
			"refund_id": refund.ID.String(),
		})
		return
	}
	if !changed || jp.hooks == nil {
		return
	}

	switch settled.Status {
	case StatusCompleted:
		jp.hooks.OnRefundCompleted(ctx, settled.RequestID)
	case StatusFailed:
		jp.hooks.OnRefundFailed(ctx, settled.RequestID, settled.NextAttemptAt == nil)
	}
}
