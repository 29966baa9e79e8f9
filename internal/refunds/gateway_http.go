package refunds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"voyago/internal/shared/config"

	"github.com/shopspring/decimal"
)

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}

// HTTPGateway talks to the payment provider's refund endpoint. A non-2xx
// response is a transport failure and retried; a 2xx with succeeded=false
// is a definitive decline.
type HTTPGateway struct {
	client *http.Client
	url    string
	apiKey string
}

// NewHTTPGateway creates a gateway client from the refund config
func NewHTTPGateway(cfg config.RefundConfig) *HTTPGateway {
	return &HTTPGateway{
		client: &http.Client{Timeout: cfg.GatewayTimeout},
		url:    cfg.GatewayURL,
		apiKey: cfg.GatewayAPIKey,
	}
}

type gatewayPayload struct {
	RefundID  string `json:"refund_id"`
	RequestID string `json:"request_id"`
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Expedited bool   `json:"expedited"`
}

type gatewayResponse struct {
	Succeeded     bool   `json:"succeeded"`
	ActualAmount  string `json:"actual_amount"`
	Reference     string `json:"reference"`
	FailureReason string `json:"failure_reason"`
}

// ProcessRefund runs one settlement attempt against the provider. The
// refund id doubles as the provider-side idempotency key, so a retried
// attempt after a lost response cannot pay twice.
func (g *HTTPGateway) ProcessRefund(ctx context.Context, req GatewayRequest) (*GatewayResult, error) {
	payload, err := json.Marshal(gatewayPayload{
		RefundID:  req.RefundID.String(),
		RequestID: req.RequestID.String(),
		BookingID: req.BookingID.String(),
		UserID:    req.UserID.String(),
		Amount:    req.Amount.String(),
		Expedited: req.Expedited,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.RefundID.String())
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	result := &GatewayResult{
		Succeeded:     body.Succeeded,
		Reference:     body.Reference,
		FailureReason: body.FailureReason,
	}
	if body.ActualAmount != "" {
		amount, err := parseAmount(body.ActualAmount)
		if err != nil {
			return nil, fmt.Errorf("gateway returned malformed amount %q: %w", body.ActualAmount, err)
		}
		result.ActualAmount = amount
	} else if body.Succeeded {
		result.ActualAmount = req.Amount
	}
	return result, nil
}
