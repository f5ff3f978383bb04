package service

import (
	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// reserveStock places an all-or-nothing hold for every snapshot line. On
// any shortage the ledger holds nothing and the error names the product
// that came up short.
func (s *CheckoutService) reserveStock(checkoutID uuid.UUID, snapshot *domain.CartSnapshot) (*domain.Reservation, error) {
	items := make([]domain.ReservationItem, len(snapshot.Items))
	for i, item := range snapshot.Items {
		items[i] = domain.ReservationItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	return s.ledger.Reserve(checkoutID.String(), items)
}
