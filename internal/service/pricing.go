package service

import "github.com/fjod/go_shop/internal/domain"

// TaxPolicy computes the tax due on a taxable base.
type TaxPolicy func(taxable domain.Money) domain.Money

// ShippingPolicy computes the shipping fee for a snapshot.
type ShippingPolicy func(snapshot *domain.CartSnapshot) domain.Money

// BasisPointsTax taxes the base at bps/100 percent (800 = 8%), rounding
// half up once on the derived amount.
func BasisPointsTax(bps int64) TaxPolicy {
	return func(taxable domain.Money) domain.Money {
		return domain.Money((int64(taxable)*bps + 5000) / 10000)
	}
}

// FlatRateShipping charges a fixed fee, waived once the subtotal reaches
// freeOver. freeOver of zero disables the waiver.
func FlatRateShipping(fee, freeOver domain.Money) ShippingPolicy {
	return func(snapshot *domain.CartSnapshot) domain.Money {
		if freeOver > 0 && snapshot.Subtotal >= freeOver {
			return 0
		}
		return fee
	}
}

// PriceCart derives the full monetary breakdown from a snapshot and a
// discount decision. The discount never exceeds the subtotal, the taxable
// base never goes below zero and shipping is not taxed.
func PriceCart(snapshot *domain.CartSnapshot, decision domain.DiscountDecision, tax TaxPolicy, shipping ShippingPolicy) domain.PricedCart {
	priced := domain.PricedCart{Subtotal: snapshot.Subtotal}

	if decision.Accepted {
		priced.Discount = decision.Amount
		if priced.Discount > priced.Subtotal {
			priced.Discount = priced.Subtotal
		}
		priced.VoucherCode = decision.Code
	}

	taxable := priced.Subtotal - priced.Discount
	if taxable < 0 {
		taxable = 0
	}

	priced.Tax = tax(taxable)
	priced.Shipping = shipping(snapshot)
	priced.GrandTotal = taxable + priced.Tax + priced.Shipping
	return priced
}
