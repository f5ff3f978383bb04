package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/metrics"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutService drives the cart-to-order saga: snapshot and price the
// cart, hold the stock, charge the gateway, then commit or compensate.
// Each step lives in its own file.
type CheckoutService struct {
	carts    *CartService
	catalog  repository.CatalogRepository
	ledger   store.InventoryStore
	orders   repository.OrderRepository
	gateway  payment.Gateway
	locks    *CartLocks
	tax      TaxPolicy
	shipping ShippingPolicy
	logger   *zap.Logger
	metrics  *metrics.CheckoutMetrics
}

func NewCheckoutService(
	carts *CartService,
	catalog repository.CatalogRepository,
	ledger store.InventoryStore,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	locks *CartLocks,
	tax TaxPolicy,
	shipping ShippingPolicy,
	logger *zap.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		catalog:  catalog,
		ledger:   ledger,
		orders:   orders,
		gateway:  gateway,
		locks:    locks,
		tax:      tax,
		shipping: shipping,
		logger:   logger,
		metrics:  checkoutMetrics,
	}
}

// Checkout converts the owner's cart into an order. The owner lock is held
// for the whole saga, so the cart cannot change mid-checkout and a second
// concurrent attempt fails with ErrCheckoutInProgress.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, method domain.PaymentMethod, voucherCode string) (*domain.Order, error) {
	start := time.Now()
	outcome := metrics.OutcomeError
	defer func() { s.metrics.Observe(outcome, time.Since(start)) }()

	unlock, ok := s.locks.TryLock(userID)
	if !ok {
		outcome = metrics.OutcomeConflict
		return nil, ErrCheckoutInProgress
	}
	defer unlock()

	checkoutID := uuid.New()
	log := s.logger.With(
		zap.String("checkout_id", checkoutID.String()),
		zap.String("user_id", userID))

	snapshot, err := s.snapshotCart(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			outcome = metrics.OutcomeEmptyCart
		}
		return nil, err
	}

	decision := s.evaluateVoucher(ctx, voucherCode, snapshot.Subtotal)
	priced := PriceCart(snapshot, decision, s.tax, s.shipping)

	reservation, err := s.reserveStock(checkoutID, snapshot)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			outcome = metrics.OutcomeInsufficientStock
		}
		return nil, err
	}

	order, err := s.createPendingOrder(ctx, checkoutID, userID, snapshot, priced, method, reservation.ID)
	if err != nil {
		s.releaseReservation(reservation.ID, log)
		return nil, err
	}
	log.Info("order created, charging gateway",
		zap.String("order_id", order.ID.String()),
		zap.String("amount", priced.GrandTotal.String()))

	result, chargeErr := s.chargePayment(ctx, order, method)
	if chargeErr != nil {
		s.failOrder(order, chargeErr, log)
		if errors.Is(chargeErr, ErrPaymentDeclined) {
			outcome = metrics.OutcomeDeclined
		} else {
			outcome = metrics.OutcomeGatewayError
		}
		return nil, chargeErr
	}

	if err := s.completeOrder(order, result, decision, log); err != nil {
		return nil, err
	}

	outcome = metrics.OutcomeSuccess
	log.Info("checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_ref", result.Reference))
	return order, nil
}

// Quote prices the current cart without checking out: same snapshot and
// voucher path as Checkout, but no stock hold and no order.
func (s *CheckoutService) Quote(ctx context.Context, userID, voucherCode string) (*domain.PricedCart, *domain.DiscountDecision, error) {
	snapshot, err := s.snapshotCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	decision := s.evaluateVoucher(ctx, voucherCode, snapshot.Subtotal)
	priced := PriceCart(snapshot, decision, s.tax, s.shipping)
	return &priced, &decision, nil
}

// evaluateVoucher looks the code up and evaluates it against the subtotal.
// A missing or rejected voucher prices as zero discount; checkout proceeds
// either way and the decision explains why.
func (s *CheckoutService) evaluateVoucher(ctx context.Context, code string, subtotal domain.Money) domain.DiscountDecision {
	if code == "" {
		return domain.DiscountDecision{}
	}

	voucher, err := s.catalog.GetVoucher(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrVoucherNotFound) {
			s.logger.Warn("voucher lookup failed", zap.String("code", code), zap.Error(err))
		}
		return domain.DiscountDecision{Code: code, Reason: domain.RejectUnknownCode}
	}

	return EvaluateVoucher(voucher, subtotal, time.Now())
}
