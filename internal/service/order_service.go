package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService reads order history and runs the post-payment lifecycle:
// cancellation with stock return, shipping and delivery transitions.
type OrderService struct {
	orders  repository.OrderRepository
	ledger  store.InventoryStore
	gateway payment.Gateway
	logger  *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, ledger store.InventoryStore, gateway payment.Gateway, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		ledger:  ledger,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetUserOrder(ctx, userID, orderID)
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.orders.ListOrdersByUserID(ctx, userID)
}

// Cancel aborts a paid, unshipped order. The status compare-and-set wins
// exactly once, so the stock return and refund can never double-run even
// under concurrent cancels.
func (s *OrderService) Cancel(ctx context.Context, userID string, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetUserOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(order.Status, domain.OrderStatusCancelled) {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotCancellable, order.Status)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"cancelled_at": time.Now(),
	})
	err = s.orders.UpdateOrderStatus(ctx, order.ID,
		domain.OrderStatusPaid, domain.OrderStatusCancelled,
		"order.cancelled", payload)
	if errors.Is(err, repository.ErrStatusConflict) {
		// Lost the race against another cancel or a shipment
		return nil, fmt.Errorf("%w: order is no longer %s", ErrOrderNotCancellable, domain.OrderStatusPaid)
	}
	if err != nil {
		return nil, err
	}

	// The sale was committed, so cancelling returns stock rather than
	// releasing a hold.
	for _, item := range order.Items {
		if err := s.ledger.Return(item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to return stock",
				zap.String("order_id", order.ID.String()),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	if order.PaymentRef != "" {
		if err := s.gateway.Refund(ctx, order.CheckoutID, order.PaymentRef, order.Pricing.GrandTotal); err != nil {
			s.logger.Warn("refund failed",
				zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	order.Status = domain.OrderStatusCancelled
	return order, nil
}

// MarkShipped and MarkDelivered are fulfilment-side transitions; they are
// not owner-scoped because warehouse tooling drives them.
func (s *OrderService) MarkShipped(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusShipped, "order.shipped")
}

func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusDelivered, "order.delivered")
}

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus, eventType string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(order.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", IllegalTransitionError, order.Status, to)
	}

	if err := s.orders.UpdateOrderStatus(ctx, order.ID, order.Status, to, eventType, nil); err != nil {
		return nil, err
	}

	order.Status = to
	return order, nil
}
