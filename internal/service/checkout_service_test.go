package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardMethod = domain.PaymentMethod{Kind: "card", Token: "tok_visa"}

func TestCheckout_Success(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	// Wireless Mouse at 20.00, two units: subtotal 40.00, 10% tax 4.00,
	// flat shipping 5.00, grand total 49.00
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	order, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, "TXN-TEST", order.PaymentRef)
	assert.Equal(t, "card", order.PaymentMethod)
	assert.Equal(t, domain.Money(4000), order.Pricing.Subtotal)
	assert.Equal(t, domain.Money(0), order.Pricing.Discount)
	assert.Equal(t, domain.Money(400), order.Pricing.Tax)
	assert.Equal(t, domain.Money(500), order.Pricing.Shipping)
	assert.Equal(t, domain.Money(4900), order.Pricing.GrandTotal)
	assert.Equal(t, domain.Money(4900), f.gateway.LastAmount)

	// Snapshot frozen into the order
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Wireless Mouse", order.Items[0].ProductName)
	assert.Equal(t, domain.Money(2000), order.Items[0].UnitPrice)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Stock sold: total dropped, nothing still held
	info := f.stock(t, 2)
	assert.Equal(t, 8, info.Total)
	assert.Equal(t, 0, info.Reserved)

	// Cart cleared
	cart, err := f.carts.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	// Durable record is PAID and the outbox carries order.paid
	stored, err := f.orders.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, stored.Status)

	events, err := f.orders.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order.paid", events[0].EventType)
	assert.Equal(t, order.ID.String(), events[0].AggregateId)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	assert.ErrorIs(t, err, ErrEmptyCart)

	orders, err := f.orders.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 0, f.gateway.CallCount())
}

func TestCheckout_InsufficientStock_FullRollback(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.SetStock(2, 1))
	require.NoError(t, f.carts.AddItem(ctx, "joe", 1, 1))
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	var stockErr *store.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(2), stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 2, stockErr.Requested)

	// Nothing held for either product, including the one that had stock
	short := f.stock(t, 2)
	assert.Equal(t, 1, short.Total)
	assert.Equal(t, 0, short.Reserved)
	ok := f.stock(t, 1)
	assert.Equal(t, 10, ok.Total)
	assert.Equal(t, 0, ok.Reserved)

	// No order, no charge, cart untouched
	orders, err := f.orders.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 0, f.gateway.CallCount())

	cart, err := f.carts.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestCheckout_PaymentDeclined(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	f.gateway.Result = &payment.Result{Approved: false, Reason: "insufficient_funds", Reference: "TXN-D"}
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	var declined *PaymentDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "insufficient_funds", declined.Reason)

	// Order persisted as PAYMENT_FAILED with its outbox event
	orders, err := f.orders.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPaymentFailed, orders[0].Status)

	events, err := f.orders.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order.payment_failed", events[0].EventType)

	// Hold released, cart preserved for a retry
	info := f.stock(t, 2)
	assert.Equal(t, 10, info.Total)
	assert.Equal(t, 0, info.Reserved)

	cart, err := f.carts.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCheckout_GatewayError(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	f.gateway.Err = errors.New("connection refused")
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentGateway)
	assert.NotErrorIs(t, err, ErrPaymentDeclined)

	// Same compensation as a decline
	orders, err := f.orders.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPaymentFailed, orders[0].Status)

	info := f.stock(t, 2)
	assert.Equal(t, 10, info.Total)
	assert.Equal(t, 0, info.Reserved)

	cart, err := f.carts.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCheckout_OrderPendingDuringCharge(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 1))

	// Observe the world as the gateway sees it, mid-charge
	var statusDuringCharge domain.OrderStatus
	var reservedDuringCharge int
	f.gateway.Hook = func() {
		orders, err := f.orders.ListOrdersByUserID(context.Background(), "joe")
		if err == nil && len(orders) == 1 {
			statusDuringCharge = orders[0].Status
		}
		infos, err := f.ledger.GetStock([]int64{2})
		if err == nil {
			reservedDuringCharge = infos[0].Reserved
		}
	}

	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPendingPayment, statusDuringCharge)
	assert.Equal(t, 1, reservedDuringCharge)
}

func TestCheckout_ConcurrentSameCart(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 1))

	release := make(chan struct{})
	f.gateway.Hook = func() { <-release }

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.checkout.Checkout(context.Background(), "joe", cardMethod, "")
			results <- err
		}()
	}

	// One attempt holds the lock at the gateway; the other fails fast
	firstErr := <-results
	assert.ErrorIs(t, firstErr, ErrCheckoutInProgress)

	close(release)
	secondErr := <-results
	assert.NoError(t, secondErr)
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.SetStock(2, 1))
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 1))
	require.NoError(t, f.carts.AddItem(ctx, "emily", 2, 1))

	var wg sync.WaitGroup
	var mu sync.Mutex
	errs := make(map[string]error)
	for _, user := range []string{"joe", "emily"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := f.checkout.Checkout(context.Background(), u, cardMethod, "")
			mu.Lock()
			errs[u] = err
			mu.Unlock()
		}(user)
	}
	wg.Wait()

	var successes, stockFails int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrInsufficientStock):
			stockFails++
		}
	}
	assert.Equal(t, 1, successes, "exactly one checkout should win the last unit")
	assert.Equal(t, 1, stockFails)

	info := f.stock(t, 2)
	assert.Equal(t, 0, info.Total)
	assert.Equal(t, 0, info.Reserved)
}

func TestCheckout_VoucherBurnedOnlyOnSuccess(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	f.addVoucher(tenPercentVoucher("TEN"))
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	// A declined attempt must not consume a voucher use
	f.gateway.Result = &payment.Result{Approved: false, Reason: "card_declined"}
	_, err := f.checkout.Checkout(ctx, "joe", cardMethod, "TEN")
	require.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, int64(0), f.catalog.Usage("TEN"))

	// The retry succeeds and burns exactly one
	f.gateway.Result = nil
	order, err := f.checkout.Checkout(ctx, "joe", cardMethod, "TEN")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.catalog.Usage("TEN"))

	// Subtotal 40.00, 10% off, 10% tax on 36.00, shipping 5.00
	assert.Equal(t, domain.Money(400), order.Pricing.Discount)
	assert.Equal(t, "TEN", order.Pricing.VoucherCode)
	assert.Equal(t, domain.Money(360), order.Pricing.Tax)
	assert.Equal(t, domain.Money(4460), order.Pricing.GrandTotal)
}

func TestCheckout_ExpiredVoucherPricesLikeNone(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	expired := tenPercentVoucher("OLD")
	expired.ValidTo = time.Now().Add(-time.Hour)
	f.addVoucher(expired)
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	order, err := f.checkout.Checkout(ctx, "joe", cardMethod, "OLD")
	require.NoError(t, err)

	assert.Equal(t, domain.Money(0), order.Pricing.Discount)
	assert.Empty(t, order.Pricing.VoucherCode)
	assert.Equal(t, domain.Money(4900), order.Pricing.GrandTotal)
	assert.Equal(t, int64(0), f.catalog.Usage("OLD"))
}

func TestCheckout_MutationWaitsForCheckout(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 1))

	// Fire an AddItem while the checkout sits in the gateway; it must
	// block on the cart lock until the saga is done
	addDone := make(chan error, 1)
	f.gateway.Hook = func() {
		go func() {
			addDone <- f.carts.AddItem(context.Background(), "joe", 1, 1)
		}()
		time.Sleep(50 * time.Millisecond)
	}

	order, err := f.checkout.Checkout(ctx, "joe", cardMethod, "")
	require.NoError(t, err)
	require.NoError(t, <-addDone)

	// The order only contains what was in the cart at snapshot time
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(2), order.Items[0].ProductID)

	// The blocked add landed after the checkout cleared the cart
	cart, err := f.carts.GetCart(ctx, "joe")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].ProductID)
}

func TestQuote(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	f.addVoucher(tenPercentVoucher("TEN"))
	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	priced, decision, err := f.checkout.Quote(ctx, "joe", "TEN")
	require.NoError(t, err)

	assert.True(t, decision.Accepted)
	assert.Equal(t, domain.Money(400), priced.Discount)
	assert.Equal(t, domain.Money(4460), priced.GrandTotal)

	// Quoting holds no stock, creates no order, burns no voucher use
	info := f.stock(t, 2)
	assert.Equal(t, 0, info.Reserved)
	orders, err := f.orders.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int64(0), f.catalog.Usage("TEN"))
}

func TestQuote_UnknownVoucher(t *testing.T) {
	f := setupCheckout(t)
	ctx := context.Background()

	require.NoError(t, f.carts.AddItem(ctx, "joe", 2, 2))

	priced, decision, err := f.checkout.Quote(ctx, "joe", "NOPE")
	require.NoError(t, err)

	assert.False(t, decision.Accepted)
	assert.Equal(t, domain.RejectUnknownCode, decision.Reason)
	assert.Equal(t, domain.Money(4900), priced.GrandTotal)
}

func TestQuote_EmptyCart(t *testing.T) {
	f := setupCheckout(t)

	_, _, err := f.checkout.Quote(context.Background(), "joe", "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}
