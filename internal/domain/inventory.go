package domain

import "time"

// ReservationStatus represents the state of a stock reservation
type ReservationStatus string

const (
	StatusReserved  ReservationStatus = "reserved"
	StatusCommitted ReservationStatus = "committed"
	StatusReleased  ReservationStatus = "released"
	StatusExpired   ReservationStatus = "expired"
)

// ReservationItem is a single product hold within a reservation
type ReservationItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Reservation is a temporary stock hold made during checkout. It either
// gets committed (payment succeeded), released (payment failed) or expires
// by TTL if the checkout never resolved it.
type Reservation struct {
	ID         string            `json:"id"`
	CheckoutID string            `json:"checkout_id"`
	Items      []ReservationItem `json:"items"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// IsExpired checks if the reservation has passed its TTL
func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// StockInfo contains the ledger counters for a product
type StockInfo struct {
	ProductID int64 `json:"product_id"`
	Total     int   `json:"total"`    // On-hand stock, reserved included
	Reserved  int   `json:"reserved"` // Currently held by pending checkouts
}

// Available returns the sellable stock (total - reserved)
func (s StockInfo) Available() int {
	return s.Total - s.Reserved
}
