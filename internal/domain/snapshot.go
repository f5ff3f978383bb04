package domain

import "time"

type CartSnapshotItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price_cents"`
	Subtotal    Money  `json:"subtotal_cents"`
	WeightGrams int64  `json:"weight_grams"`
}

// CartSnapshot is the full cart state frozen at checkout time: quantities
// from the cart, prices and names from the catalog as of this moment.
// Later catalog edits never change what an order was billed at.
type CartSnapshot struct {
	Items       []CartSnapshotItem `json:"items"`
	Subtotal    Money              `json:"subtotal_cents"`
	WeightGrams int64              `json:"weight_grams"`
	Currency    string             `json:"currency"`
	CapturedAt  time.Time          `json:"captured_at"`
}
