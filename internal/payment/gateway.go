package payment

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// ErrUnavailable means the gateway could not be reached at all: timeout,
// transport failure or an open circuit. A decline is not an error.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Result is the gateway's answer to a charge attempt. Approved=false with
// a Reason is a decline; transport problems surface as errors instead.
type Result struct {
	Approved  bool
	Reference string
	Reason    string
}

type Gateway interface {
	Charge(ctx context.Context, checkoutID uuid.UUID, amount domain.Money, method domain.PaymentMethod) (*Result, error)

	// Refund reverses a captured charge. Best effort; callers log failures
	// rather than aborting the cancellation that triggered it.
	Refund(ctx context.Context, checkoutID uuid.UUID, paymentRef string, amount domain.Money) error
}
