package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockCatalog implements repository.CatalogRepository for testing
type MockCatalog struct {
	mu       sync.Mutex
	Products map[int64]*domain.Product
	Vouchers map[string]*domain.Voucher
	IncErr   error
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Mechanical Keyboard", Price: 8900, WeightGrams: 950},
			2: {ID: 2, Name: "Wireless Mouse", Price: 2000, WeightGrams: 100},
		},
		Vouchers: make(map[string]*domain.Voucher),
	}
}

func (m *MockCatalog) GetAllProducts(context.Context) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var products []*domain.Product
	for _, p := range m.Products {
		products = append(products, p)
	}
	return products, nil
}

func (m *MockCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, exists := m.Products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *MockCatalog) GetVoucher(_ context.Context, code string) (*domain.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	voucher, exists := m.Vouchers[code]
	if !exists {
		return nil, repository.ErrVoucherNotFound
	}
	cp := *voucher
	return &cp, nil
}

func (m *MockCatalog) IncrementVoucherUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IncErr != nil {
		return m.IncErr
	}
	voucher, exists := m.Vouchers[code]
	if !exists {
		return repository.ErrVoucherNotFound
	}
	if voucher.UsageLimit > 0 && voucher.UsageCount >= voucher.UsageLimit {
		return repository.ErrVoucherExhausted
	}
	voucher.UsageCount++
	return nil
}

func (m *MockCatalog) GetInitialStock(context.Context) (map[int64]int, error) {
	return map[int64]int{1: 10, 2: 10}, nil
}

func (m *MockCatalog) Usage(code string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.Vouchers[code]; ok {
		return v.UsageCount
	}
	return 0
}

// MockGateway implements payment.Gateway for testing
type MockGateway struct {
	mu         sync.Mutex
	Result     *payment.Result
	Err        error
	Hook       func() // runs inside Charge, before returning
	Calls      int
	LastAmount domain.Money
	Refunded   []string
}

func (g *MockGateway) Charge(_ context.Context, _ uuid.UUID, amount domain.Money, _ domain.PaymentMethod) (*payment.Result, error) {
	g.mu.Lock()
	g.Calls++
	g.LastAmount = amount
	hook := g.Hook
	result, err := g.Result, g.Err
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &payment.Result{Approved: true, Reference: "TXN-TEST"}
	}
	return result, nil
}

func (g *MockGateway) Refund(_ context.Context, _ uuid.UUID, paymentRef string, _ domain.Money) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Refunded = append(g.Refunded, paymentRef)
	return nil
}

func (g *MockGateway) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls
}

// checkoutFixture wires real in-memory implementations around the two
// mocked edges (catalog, gateway), matching the production object graph.
type checkoutFixture struct {
	cartRepo *repository.MemoryCartRepository
	catalog  *MockCatalog
	ledger   *store.MemoryStore
	orders   *repository.MemoryOrderRepository
	gateway  *MockGateway
	locks    *CartLocks
	carts    *CartService
	checkout *CheckoutService
	orderSvc *OrderService
}

func setupCheckout(t *testing.T) *checkoutFixture {
	cartRepo := repository.NewMemoryCartRepository()
	catalog := NewMockCatalog()
	ledger := store.NewMemoryStore()
	t.Cleanup(func() { ledger.Close() })
	orders := repository.NewMemoryOrderRepository()
	gateway := &MockGateway{}
	locks := NewCartLocks()
	logger := zap.NewNop()

	stock, _ := catalog.GetInitialStock(context.Background())
	for id, qty := range stock {
		if err := ledger.SetStock(id, qty); err != nil {
			t.Fatalf("failed to seed stock: %v", err)
		}
	}

	carts := NewCartService(cartRepo, catalog, cache.Noop{}, locks, logger)
	checkout := NewCheckoutService(carts, catalog, ledger, orders, gateway, locks,
		BasisPointsTax(1000), FlatRateShipping(500, 0), logger, nil)
	orderSvc := NewOrderService(orders, ledger, gateway, logger)

	return &checkoutFixture{
		cartRepo: cartRepo,
		catalog:  catalog,
		ledger:   ledger,
		orders:   orders,
		gateway:  gateway,
		locks:    locks,
		carts:    carts,
		checkout: checkout,
		orderSvc: orderSvc,
	}
}

func (f *checkoutFixture) stock(t *testing.T, productID int64) domain.StockInfo {
	t.Helper()
	infos, err := f.ledger.GetStock([]int64{productID})
	if err != nil {
		t.Fatalf("failed to get stock: %v", err)
	}
	return infos[0]
}

func (f *checkoutFixture) addVoucher(v *domain.Voucher) {
	f.catalog.mu.Lock()
	defer f.catalog.mu.Unlock()
	f.catalog.Vouchers[v.Code] = v
}

func tenPercentVoucher(code string) *domain.Voucher {
	return &domain.Voucher{
		Code:      code,
		Type:      domain.VoucherPercent,
		Value:     10,
		ValidFrom: time.Now().Add(-time.Hour),
		ValidTo:   time.Now().Add(time.Hour),
	}
}
