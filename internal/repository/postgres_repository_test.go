package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupOrdersRepo(t *testing.T) *PostgresOrderRepository {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("shop_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "test",
		Password:          "test",
		DBName:            "shop_test",
		MigrationsDirPath: "./migrations/postgres",
	}

	repo, err := NewPostgresOrderRepository(creds)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations(creds))
	return repo
}

func makeOrder(userID string) *domain.Order {
	return &domain.Order{
		ID:         uuid.New(),
		CheckoutID: uuid.New(),
		UserID:     userID,
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Mechanical Keyboard", Quantity: 2, UnitPrice: 8900, Subtotal: 17800},
		},
		Pricing: domain.PricedCart{
			Subtotal:    17800,
			Discount:    1780,
			Tax:         1282,
			Shipping:    500,
			GrandTotal:  17802,
			VoucherCode: "WELCOME10",
		},
		PaymentMethod: "card",
		ReservationID: uuid.New().String(),
		Status:        domain.OrderStatusPendingPayment,
	}
}

func TestCreateOrder_RoundTrip(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.CheckoutID, fetched.CheckoutID)
	assert.Equal(t, "joe", fetched.UserID)
	assert.Equal(t, order.Items, fetched.Items)
	assert.Equal(t, order.Pricing, fetched.Pricing)
	assert.Equal(t, order.ReservationID, fetched.ReservationID)
	assert.Equal(t, domain.OrderStatusPendingPayment, fetched.Status)
	assert.False(t, fetched.CreatedAt.IsZero())
}

func TestCreateOrder_DuplicateCheckout(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	dup := makeOrder("joe")
	dup.CheckoutID = order.CheckoutID

	err := repo.CreateOrder(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateCheckout)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := setupOrdersRepo(t)

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetUserOrder_OtherUsersOrderHidden(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	_, err := repo.GetUserOrder(ctx, "emily", order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	fetched, err := repo.GetUserOrder(ctx, "joe", order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
}

func TestListOrdersByUserID_NewestFirst(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	first := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, first))

	// Ensure a distinct created_at for deterministic ordering
	time.Sleep(10 * time.Millisecond)

	second := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, second))
	require.NoError(t, repo.CreateOrder(ctx, makeOrder("emily")))

	orders, err := repo.ListOrdersByUserID(ctx, "joe")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestMarkOrderPaid(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.MarkOrderPaid(ctx, order.ID, "TXN-12345", []byte(`{"amount_cents":17802}`)))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, fetched.Status)
	assert.Equal(t, "TXN-12345", fetched.PaymentRef)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID.String(), events[0].AggregateId)
	assert.Equal(t, "order.paid", events[0].EventType)
	assert.JSONEq(t, `{"amount_cents":17802}`, string(events[0].Payload))

	// Second attempt loses the compare-and-set
	err = repo.MarkOrderPaid(ctx, order.ID, "TXN-99999", nil)
	assert.ErrorIs(t, err, ErrStatusConflict)
}

func TestUpdateOrderStatus_CASConflict(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	err := repo.UpdateOrderStatus(ctx, order.ID,
		domain.OrderStatusPaid, domain.OrderStatusCancelled, "order.cancelled", nil)
	assert.ErrorIs(t, err, ErrStatusConflict)

	// The losing transition must not leave an event behind
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingPayment, fetched.Status)
}

func TestUpdateOrderStatus_WritesOutboxEvent(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))

	err := repo.UpdateOrderStatus(ctx, order.ID,
		domain.OrderStatusPendingPayment, domain.OrderStatusPaymentFailed, "order.payment_failed", nil)
	require.NoError(t, err)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "order.payment_failed", events[0].EventType)
	assert.JSONEq(t, `{}`, string(events[0].Payload))
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	order := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, order))
	require.NoError(t, repo.MarkOrderPaid(ctx, order.ID, "TXN-1", nil))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetStuckOrders(t *testing.T) {
	repo := setupOrdersRepo(t)
	ctx := context.Background()

	stuck := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, stuck))
	fresh := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, fresh))
	paid := makeOrder("joe")
	require.NoError(t, repo.CreateOrder(ctx, paid))
	require.NoError(t, repo.MarkOrderPaid(ctx, paid.ID, "TXN-1", nil))

	// Backdate one pending order past the cutoff
	_, err := repo.db.ExecContext(ctx,
		`UPDATE orders SET updated_at = NOW() - INTERVAL '10 minutes' WHERE id = $1`, stuck.ID)
	require.NoError(t, err)

	orders, err := repo.GetStuckOrders(ctx, time.Now().Add(-5*time.Minute))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, stuck.ID, orders[0].ID)
	assert.Equal(t, stuck.ReservationID, orders[0].ReservationID)
}
