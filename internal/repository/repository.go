package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrProductNotFound   = errors.New("product not found")
	ErrVoucherNotFound   = errors.New("voucher not found")
	ErrVoucherExhausted  = errors.New("voucher usage limit reached")
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrStatusConflict    = errors.New("order status changed concurrently")
)

// Credentials configure the postgres order store.
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID string, productID int64) error
	DeleteCart(ctx context.Context, userID string) error
}

type CatalogRepository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetVoucher(ctx context.Context, code string) (*domain.Voucher, error)

	// IncrementVoucherUsage bumps the usage counter, refusing once the
	// limit is reached so two concurrent checkouts cannot both take the
	// last use.
	IncrementVoucherUsage(ctx context.Context, code string) error

	// GetInitialStock returns seed quantities for the inventory ledger
	GetInitialStock(ctx context.Context) (map[int64]int, error)
}

type AuthRepository interface {
	// GetUserWithPassword returns the user and the stored password for
	// login comparison. The password never travels further up.
	GetUserWithPassword(ctx context.Context, username string) (*domain.User, string, error)
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// OutboxEvent is a pending integration event written in the same
// transaction as the order change it describes.
type OutboxEvent struct {
	ID          int             `json:"id"`
	AggregateId string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// GetUserOrder fetches an order only if it belongs to the user,
	// so handlers cannot leak other people's orders.
	GetUserOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)

	// MarkOrderPaid moves PENDING_PAYMENT -> PAID, stores the gateway
	// reference and writes the order.paid outbox event in one
	// transaction. ErrStatusConflict if the order is not pending.
	MarkOrderPaid(ctx context.Context, id uuid.UUID, paymentRef string, payload []byte) error

	// UpdateOrderStatus is a compare-and-set from -> to with an outbox
	// event in the same transaction. ErrStatusConflict when the row is
	// no longer in the from status.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, eventType string, payload []byte) error

	// GetStuckOrders returns PENDING_PAYMENT orders untouched since
	// the cutoff; the recovery pass resolves them to PAYMENT_FAILED.
	GetStuckOrders(ctx context.Context, cutoff time.Time) ([]*domain.Order, error)

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error

	RunMigrations(*Credentials) error
	Close() error
}
