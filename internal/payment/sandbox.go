package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Test nonces understood by SandboxGateway.
const (
	NonceProcessorDeclined = "fake-processor-declined"
	NonceGatewayRejected   = "fake-gateway-rejected"
	NonceTransportError    = "fake-transport-error"
	NonceValid             = "fake-valid-nonce"
)

// ErrSandboxTransport is what SandboxGateway returns for NonceTransportError.
var ErrSandboxTransport = errors.New("sandbox: transport error")

// SandboxGateway settles every sale in process. Nonces starting with one of
// the decline prefixes are declined.
type SandboxGateway struct{}

type sandboxTransaction struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (SandboxGateway) Sale(ctx context.Context, req SaleRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if strings.HasPrefix(req.Nonce, NonceTransportError) {
		return Result{}, ErrSandboxTransport
	}

	txn := sandboxTransaction{
		ID:        uuid.NewString(),
		Type:      "sale",
		Amount:    req.Amount.StringFixed(2),
		Status:    "authorized",
		CreatedAt: time.Now().UTC(),
	}
	success := true
	switch {
	case strings.HasPrefix(req.Nonce, NonceProcessorDeclined):
		txn.Status, success = "processor_declined", false
	case strings.HasPrefix(req.Nonce, NonceGatewayRejected), !req.Amount.IsPositive():
		txn.Status, success = "gateway_rejected", false
	case req.SubmitForSettlement:
		txn.Status = "submitted_for_settlement"
	}

	b, err := json.Marshal(txn)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: success, Transaction: b}, nil
}
