package money

import "github.com/shopspring/decimal"

// Amount is a stored money value. It scans from NUMERIC columns and always
// renders as a quoted two-place string in JSON ("20.00", never "20").
type Amount struct {
	decimal.Decimal
}

// NewAmount rounds d to cents.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d.Round(2)} }

// RequireAmount parses s and panics on malformed input. Test and seed use only.
func RequireAmount(s string) Amount { return NewAmount(decimal.RequireFromString(s)) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(2) + `"`), nil
}

func (a Amount) String() string { return a.StringFixed(2) }
