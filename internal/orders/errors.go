package orders

import (
	"errors"
	"fmt"
)

// Kind classifies an order error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindIntegrity
	KindInsufficientQuantity
	KindPayment
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindIntegrity:
		return "integrity"
	case KindInsufficientQuantity:
		return "insufficient_quantity"
	case KindPayment:
		return "payment"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the error type surfaced by the order service. Message is safe to
// show to callers; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, KindInternal
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func UnauthorizedError(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// IntegrityError reports client pricing that disagrees with stored data.
func IntegrityError(cause error) *Error {
	return &Error{Kind: KindIntegrity, Message: "Integrity error. Pricing data mismatch.", Err: cause}
}

// InsufficientQuantityError names the first product that could not be reserved.
func InsufficientQuantityError(productName string) *Error {
	return &Error{Kind: KindInsufficientQuantity, Message: fmt.Sprintf("Insufficient Quantity: %q", productName)}
}

// PaymentError covers both declines (cause nil) and gateway failures.
func PaymentError(cause error) *Error {
	if cause == nil {
		return &Error{Kind: KindPayment, Message: "Payment declined"}
	}
	return &Error{Kind: KindPayment, Message: "Payment failed", Err: cause}
}
