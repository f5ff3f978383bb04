package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

// MemoryCartRepository keeps carts in a map. Used by tests and when no
// mongo is configured; semantics mirror the mongo repository exactly.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string]*domain.Cart),
	}
}

func (m *MemoryCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, exists := m.carts[userID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (m *MemoryCartRepository) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	m.carts[cart.UserID] = cart.Clone()
	return nil
}

func (m *MemoryCartRepository) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	item.AddedAt = now

	cart, exists := m.carts[userID]
	if !exists {
		m.carts[userID] = &domain.Cart{
			UserID:    userID,
			Items:     []domain.CartItem{item},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}

	if line := cart.Item(item.ProductID); line != nil {
		line.Quantity += item.Quantity
		line.AddedAt = now
	} else {
		cart.Items = append(cart.Items, item)
	}
	cart.UpdatedAt = now
	return nil
}

func (m *MemoryCartRepository) UpdateItemQuantity(_ context.Context, userID string, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, exists := m.carts[userID]
	if !exists {
		return ErrItemNotFound
	}
	line := cart.Item(productID)
	if line == nil {
		return ErrItemNotFound
	}
	line.Quantity = quantity
	cart.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryCartRepository) RemoveItem(_ context.Context, userID string, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, exists := m.carts[userID]
	if !exists {
		return ErrItemNotFound
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			cart.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *MemoryCartRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.carts[userID]; !exists {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}
