package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupCartDB(t *testing.T) CartRepository {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)

	mongoRepo := repo.(*mongoRepository)
	require.NoError(t, mongoRepo.CreateIndexes(ctx))

	return repo
}

func TestMongoGetCart_NotFound(t *testing.T) {
	repo := setupCartDB(t)

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestMongoAddItem_NewCart(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	err := repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Equal(t, "joe", cart.UserID)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestMongoAddItem_SameProduct_MergesQuantity(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 5}))

	// Same product lands on one line with the quantities summed
	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestMongoAddItem_DifferentProducts(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 2, Quantity: 1}))

	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestMongoUpdateItemQuantity(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))

	require.NoError(t, repo.UpdateItemQuantity(ctx, "joe", 1, 10))

	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Equal(t, 10, cart.Items[0].Quantity)
}

func TestMongoUpdateItemQuantity_MissingItem(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))

	err := repo.UpdateItemQuantity(ctx, "joe", 99, 10)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMongoRemoveItem(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 2, Quantity: 3}))

	require.NoError(t, repo.RemoveItem(ctx, "joe", 1))

	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestMongoRemoveItem_MissingItem(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))

	err := repo.RemoveItem(ctx, "joe", 99)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestMongoDeleteCart(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))

	require.NoError(t, repo.DeleteCart(ctx, "joe"))

	_, err := repo.GetCart(ctx, "joe")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMongoUpsertCart_ReplacesWholeCart(t *testing.T) {
	repo := setupCartDB(t)
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "joe", domain.CartItem{ProductID: 1, Quantity: 2}))

	replacement := &domain.Cart{
		UserID: "joe",
		Items: []domain.CartItem{
			{ProductID: 3, Quantity: 1, AddedAt: time.Now()},
		},
	}
	require.NoError(t, repo.UpsertCart(ctx, replacement))

	cart, err := repo.GetCart(ctx, "joe")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(3), cart.Items[0].ProductID)
	assert.False(t, cart.UpdatedAt.IsZero())
}

func TestMongoContextCancellation(t *testing.T) {
	repo := setupCartDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.GetCart(ctx, "joe")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
