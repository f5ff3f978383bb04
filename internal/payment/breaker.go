package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// BreakerGateway wraps a Gateway with a per-attempt timeout and a circuit
// breaker. A decline is a successful call as far as the circuit is
// concerned; only transport errors and timeouts count against it.
type BreakerGateway struct {
	inner   Gateway
	cb      *gobreaker.CircuitBreaker[*Result]
	timeout time.Duration
}

func NewBreakerGateway(inner Gateway, timeout time.Duration) *BreakerGateway {
	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &BreakerGateway{
		inner:   inner,
		cb:      cb,
		timeout: timeout,
	}
}

func (b *BreakerGateway) Charge(ctx context.Context, checkoutID uuid.UUID, amount domain.Money, method domain.PaymentMethod) (*Result, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	result, err := b.cb.Execute(func() (*Result, error) {
		return b.inner.Charge(chargeCtx, checkoutID, amount, method)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return result, nil
}

func (b *BreakerGateway) Refund(ctx context.Context, checkoutID uuid.UUID, paymentRef string, amount domain.Money) error {
	refundCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	return b.inner.Refund(refundCtx, checkoutID, paymentRef, amount)
}
