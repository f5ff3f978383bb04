package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

func (s *CheckoutService) snapshotCart(ctx context.Context, userID string) (*domain.CartSnapshot, error) {
	cart, err := s.carts.Snapshot(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	return s.buildCartSnapshot(ctx, cart.Items)
}

// buildCartSnapshot re-prices every line from the catalog: quantities come
// from the cart, names and prices are whatever the catalog says right now.
// The snapshot is what gets frozen into the order.
func (s *CheckoutService) buildCartSnapshot(ctx context.Context, items []domain.CartItem) (*domain.CartSnapshot, error) {
	snapshot := &domain.CartSnapshot{
		Items:      make([]domain.CartSnapshotItem, 0, len(items)),
		Currency:   "USD",
		CapturedAt: time.Now(),
	}

	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to get product %d: %w", item.ProductID, err)
		}

		subtotal := product.Price * domain.Money(item.Quantity)
		weight := product.WeightGrams * int64(item.Quantity)

		snapshot.Items = append(snapshot.Items, domain.CartSnapshotItem{
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    subtotal,
			WeightGrams: weight,
		})

		snapshot.Subtotal += subtotal
		snapshot.WeightGrams += weight
	}

	return snapshot, nil
}
