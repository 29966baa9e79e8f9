package refunds

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayRequest is what the settlement worker hands to the payment side
type GatewayRequest struct {
	RefundID  uuid.UUID
	RequestID uuid.UUID
	BookingID uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Expedited bool
}

// GatewayResult is the gateway's answer to a settlement attempt. A nil
// error with Succeeded=false is a definitive decline, not a transport
// failure; transport failures come back as errors and are retried.
type GatewayResult struct {
	Succeeded     bool
	ActualAmount  decimal.Decimal
	Reference     string
	FailureReason string
}

// Gateway is the port to the external payment provider. Implementations
// must be safe for concurrent use; the worker calls it with a deadline.
type Gateway interface {
	ProcessRefund(ctx context.Context, req GatewayRequest) (*GatewayResult, error)
}
