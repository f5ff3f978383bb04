package repository

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// MemoryOrderRepository mirrors the postgres semantics (compare-and-set
// transitions, outbox rows) in a map. Used by tests and when no postgres
// is configured.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
	outbox []*OutboxEvent
	nextID int
	done   map[int]bool // processed event ids
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[uuid.UUID]*domain.Order),
		nextID: 1,
		done:   make(map[int]bool),
	}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func (m *MemoryOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.orders {
		if existing.CheckoutID == order.CheckoutID {
			return ErrDuplicateCheckout
		}
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *MemoryOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryOrderRepository) GetUserOrder(_ context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[id]
	if !exists || order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *MemoryOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			orders = append(orders, copyOrder(order))
		}
	}
	// Newest first, like the postgres query
	for i := 0; i < len(orders); i++ {
		for j := i + 1; j < len(orders); j++ {
			if orders[j].CreatedAt.After(orders[i].CreatedAt) {
				orders[i], orders[j] = orders[j], orders[i]
			}
		}
	}
	return orders, nil
}

func (m *MemoryOrderRepository) MarkOrderPaid(_ context.Context, id uuid.UUID, paymentRef string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists || order.Status != domain.OrderStatusPendingPayment {
		return ErrStatusConflict
	}
	order.Status = domain.OrderStatusPaid
	order.PaymentRef = paymentRef
	order.UpdatedAt = time.Now()
	m.appendEvent(id.String(), "order.paid", payload)
	return nil
}

func (m *MemoryOrderRepository) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists || order.Status != from {
		return ErrStatusConflict
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	m.appendEvent(id.String(), eventType, payload)
	return nil
}

func (m *MemoryOrderRepository) appendEvent(aggregateID, eventType string, payload []byte) {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	m.outbox = append(m.outbox, &OutboxEvent{
		ID:          m.nextID,
		AggregateId: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   time.Now(),
	})
	m.nextID++
}

func (m *MemoryOrderRepository) GetStuckOrders(_ context.Context, cutoff time.Time) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stuck []*domain.Order
	for _, order := range m.orders {
		if order.Status == domain.OrderStatusPendingPayment && order.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, copyOrder(order))
		}
	}
	return stuck, nil
}

func (m *MemoryOrderRepository) GetUnprocessedEvents(_ context.Context, limit int) ([]*OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*OutboxEvent
	for _, ev := range m.outbox {
		if m.done[ev.ID] {
			continue
		}
		events = append(events, ev)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MemoryOrderRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[id] = true
	return nil
}

func (m *MemoryOrderRepository) RunMigrations(*Credentials) error { return nil }

func (m *MemoryOrderRepository) Close() error { return nil }
