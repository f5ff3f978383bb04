package domain

import "time"

// Product is a catalog entry. Price is the current unit price; carts store
// product references only and are re-priced from the catalog at checkout.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Money     `json:"price_cents"`
	WeightGrams int64     `json:"weight_grams"`
	CreatedAt   time.Time `json:"created_at"`
}
