// Package payment charges customers through an external payment processor.
package payment

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type SaleRequest struct {
	Amount              decimal.Decimal
	Nonce               string
	SubmitForSettlement bool
}

// Result is the processor's answer to a sale. A decline is Success false
// with a nil error; Transaction is the processor's record, stored verbatim.
type Result struct {
	Success     bool            `json:"success"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// Gateway makes exactly one sale attempt per call and never retries.
type Gateway interface {
	Sale(ctx context.Context, req SaleRequest) (Result, error)
}
