package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/braintree-go/braintree-go"
)

// transactionCreator is the part of braintree.TransactionGateway a sale needs.
type transactionCreator interface {
	Create(ctx context.Context, tx *braintree.TransactionRequest) (*braintree.Transaction, error)
}

// BraintreeGateway creates sales through the Braintree server SDK.
type BraintreeGateway struct {
	txns transactionCreator
}

// NewBraintreeGateway picks the environment by name ("sandbox" or
// "production"). A non-empty baseURL overrides the named environment.
func NewBraintreeGateway(environment, baseURL, merchantID, publicKey, privateKey string) (*BraintreeGateway, error) {
	env, err := Environment(environment, baseURL)
	if err != nil {
		return nil, err
	}
	bt := braintree.New(env, merchantID, publicKey, privateKey)
	return &BraintreeGateway{txns: bt.Transaction()}, nil
}

// Environment resolves the processor endpoint from configuration.
func Environment(name, baseURL string) (env braintree.Environment, err error) {
	if baseURL != "" {
		return braintree.NewEnvironment(strings.TrimRight(baseURL, "/")), nil
	}
	switch strings.ToLower(name) {
	case "", "sandbox":
		return braintree.Sandbox, nil
	case "production":
		return braintree.Production, nil
	}
	return env, fmt.Errorf("payment: unknown braintree environment %q", name)
}

type braintreeRecord struct {
	ID           string `json:"id"`
	Type         string `json:"type,omitempty"`
	Status       string `json:"status,omitempty"`
	Amount       string `json:"amount,omitempty"`
	ResponseText string `json:"processor_response_text,omitempty"`
}

func recordOf(tx *braintree.Transaction) json.RawMessage {
	if tx == nil {
		return nil
	}
	rec := braintreeRecord{
		ID:           tx.Id,
		Type:         tx.Type,
		Status:       string(tx.Status),
		ResponseText: tx.ProcessorResponseText,
	}
	if tx.Amount != nil {
		rec.Amount = tx.Amount.String()
	}
	b, _ := json.Marshal(rec)
	return b
}

// Sale makes one attempt. A processor decline or a validation failure comes
// back from the SDK as *braintree.BraintreeError and is reported as a
// declined Result; any other error means the outcome is unknown.
func (g *BraintreeGateway) Sale(ctx context.Context, req SaleRequest) (Result, error) {
	cents := req.Amount.Round(2).Shift(2).IntPart()
	tx, err := g.txns.Create(ctx, &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             braintree.NewDecimal(cents, 2),
		PaymentMethodNonce: req.Nonce,
		Options:            &braintree.TransactionOptions{SubmitForSettlement: req.SubmitForSettlement},
	})
	if err != nil {
		var declined *braintree.BraintreeError
		if errors.As(err, &declined) {
			return Result{Success: false, Transaction: recordOf(declined.Transaction)}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return Result{}, fmt.Errorf("payment gateway: %w: %w", ctxErr, err)
		}
		return Result{}, fmt.Errorf("payment gateway: %w", err)
	}
	return Result{Success: true, Transaction: recordOf(tx)}, nil
}
