package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInProgress  = errors.New("checkout already in progress for this cart")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrPaymentDeclined     = errors.New("payment declined")
	ErrPaymentGateway      = errors.New("payment gateway error")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")
	IllegalTransitionError = errors.New("illegal transition of order status")
)

// PaymentDeclinedError carries the gateway's refusal reason. Matches
// ErrPaymentDeclined via errors.Is.
type PaymentDeclinedError struct {
	Reason string
}

func (e *PaymentDeclinedError) Error() string {
	if e.Reason == "" {
		return "payment declined"
	}
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

func (e *PaymentDeclinedError) Is(target error) bool {
	return target == ErrPaymentDeclined
}
