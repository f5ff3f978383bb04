package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price_cents"`
	Subtotal    Money  `json:"subtotal_cents"`
}

// Order is the durable record of a checkout. Items and Pricing are frozen
// from the checkout-time snapshot; they never track later catalog changes.
// ReservationID links the order to its inventory hold for compensation.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	CheckoutID    uuid.UUID   `json:"checkout_id"`
	UserID        string      `json:"user_id"`
	Items         []OrderItem `json:"items"`
	Pricing       PricedCart  `json:"pricing"`
	PaymentMethod string      `json:"payment_method"`
	PaymentRef    string      `json:"payment_ref,omitempty"`
	ReservationID string      `json:"-"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ItemsFromSnapshot converts checkout-time snapshot lines into order lines.
func ItemsFromSnapshot(snapshot *CartSnapshot) []OrderItem {
	items := make([]OrderItem, len(snapshot.Items))
	for i, it := range snapshot.Items {
		items[i] = OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		}
	}
	return items
}
