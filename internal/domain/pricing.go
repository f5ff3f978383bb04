package domain

// PricedCart is the full price breakdown computed from a cart snapshot:
// grand total = (subtotal - discount) + tax + shipping. Shipping is not
// taxed. The breakdown is frozen into the order at checkout.
type PricedCart struct {
	Subtotal    Money  `json:"subtotal_cents"`
	Discount    Money  `json:"discount_cents"`
	Tax         Money  `json:"tax_cents"`
	Shipping    Money  `json:"shipping_cents"`
	GrandTotal  Money  `json:"grand_total_cents"`
	VoucherCode string `json:"voucher_code,omitempty"`
}
