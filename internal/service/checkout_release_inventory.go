package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.uber.org/zap"
)

func (s *CheckoutService) releaseReservation(reservationID string, log *zap.Logger) {
	if err := s.ledger.Release(reservationID); err != nil {
		log.Error("failed to release reservation",
			zap.String("reservation_id", reservationID), zap.Error(err))
	}
}

// failOrder compensates a failed charge: the stock hold is released and the
// order moves to PAYMENT_FAILED with an outbox event. Runs on a fresh
// context so a cancelled request cannot skip the cleanup.
func (s *CheckoutService) failOrder(order *domain.Order, cause error, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.releaseReservation(order.ReservationID, log)

	payload, _ := json.Marshal(map[string]interface{}{
		"order_id": order.ID,
		"reason":   cause.Error(),
	})
	err := s.orders.UpdateOrderStatus(ctx, order.ID,
		domain.OrderStatusPendingPayment, domain.OrderStatusPaymentFailed,
		"order.payment_failed", payload)
	if err != nil {
		log.Error("failed to mark order as payment failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return
	}
	order.Status = domain.OrderStatusPaymentFailed
}
