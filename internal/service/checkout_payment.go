package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
)

// chargePayment calls the gateway for the order's grand total. The gateway
// wrapper owns the attempt timeout and the circuit breaker, so an error
// here is a transport failure, never an ambiguous success: a timed-out
// charge is treated as failed and compensated.
func (s *CheckoutService) chargePayment(ctx context.Context, order *domain.Order, method domain.PaymentMethod) (*payment.Result, error) {
	result, err := s.gateway.Charge(ctx, order.CheckoutID, order.Pricing.GrandTotal, method)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	if !result.Approved {
		return nil, &PaymentDeclinedError{Reason: result.Reason}
	}

	return result, nil
}
