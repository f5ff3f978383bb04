package store

import (
	"errors"
	"fmt"

	"github.com/fjod/go_shop/internal/domain"
)

// Common errors returned by the store
var (
	ErrProductNotFound     = errors.New("product not found in inventory")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrInvalidStatus       = errors.New("invalid reservation status for this operation")
)

// InsufficientStockError reports which product could not be reserved and
// how short the ledger was. Matches ErrInsufficientStock via errors.Is.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InventoryStore is the stock ledger. It is the only authority on
// quantities: available + reserved always equals total, and total only
// moves through Commit (sale), Return (cancelled order) and SetStock
// (admin restock).
type InventoryStore interface {
	// GetStock returns ledger counters for the given product IDs
	GetStock(productIDs []int64) ([]domain.StockInfo, error)

	// Reserve places a hold for every item or for none of them.
	// On any shortage nothing is held and the error names the product.
	Reserve(checkoutID string, items []domain.ReservationItem) (*domain.Reservation, error)

	// Commit consumes a reservation after successful payment,
	// permanently deducting stock. Only valid on "reserved" holds.
	Commit(reservationID string) error

	// Release cancels a reservation, returning stock to the available
	// pool. Only valid on "reserved" holds.
	Release(reservationID string) error

	// Return credits stock back for a cancelled paid order. Distinct
	// from Release: the reservation was already committed, so this
	// increases total.
	Return(productID int64, quantity int) error

	// SetStock sets the total for a product (seeding and admin restock)
	SetStock(productID int64, quantity int) error

	// Close shuts down the store and any background processes
	Close() error
}
