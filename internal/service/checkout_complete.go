package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// createPendingOrder persists the order in PENDING_PAYMENT before the
// gateway is called, so a crash mid-charge leaves a recoverable record
// instead of a charge with no trace.
func (s *CheckoutService) createPendingOrder(
	ctx context.Context,
	checkoutID uuid.UUID,
	userID string,
	snapshot *domain.CartSnapshot,
	priced domain.PricedCart,
	method domain.PaymentMethod,
	reservationID string,
) (*domain.Order, error) {
	order := &domain.Order{
		ID:            uuid.New(),
		CheckoutID:    checkoutID,
		UserID:        userID,
		Items:         domain.ItemsFromSnapshot(snapshot),
		Pricing:       priced,
		PaymentMethod: method.Kind,
		ReservationID: reservationID,
		Status:        domain.OrderStatusPendingPayment,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// completeOrder finishes an approved charge: commit the stock hold, mark
// the order paid, burn the voucher use and clear the cart. Runs on a fresh
// context because the money already moved; a cancelled request must not
// abandon a captured charge halfway.
func (s *CheckoutService) completeOrder(order *domain.Order, result *payment.Result, decision domain.DiscountDecision, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.ledger.Commit(order.ReservationID); err != nil {
		// The hold expired mid-charge. The charge went through, so the
		// order stands; the ledger discrepancy goes to the log for ops.
		log.Error("failed to commit reservation",
			zap.String("reservation_id", order.ReservationID), zap.Error(err))
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"amount_cents": order.Pricing.GrandTotal,
		"payment_ref":  result.Reference,
		"completed_at": time.Now(),
	})
	if err := s.orders.MarkOrderPaid(ctx, order.ID, result.Reference, payload); err != nil {
		log.Error("failed to mark order paid",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = domain.OrderStatusPaid
	order.PaymentRef = result.Reference

	if decision.Accepted {
		if err := s.catalog.IncrementVoucherUsage(ctx, decision.Code); err != nil {
			log.Warn("failed to increment voucher usage",
				zap.String("code", decision.Code), zap.Error(err))
		}
	}

	if err := s.carts.clearCart(ctx, order.UserID); err != nil {
		log.Warn("failed to clear cart after checkout", zap.Error(err))
	}

	return nil
}
