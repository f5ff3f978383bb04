package service

import (
	"time"

	"github.com/fjod/go_shop/internal/domain"
)

// EvaluateVoucher decides whether a voucher applies to a subtotal and what
// it is worth. Pure: usage counters are incremented elsewhere, and only
// after the order is actually paid, so a failed checkout never burns a use.
func EvaluateVoucher(voucher *domain.Voucher, subtotal domain.Money, now time.Time) domain.DiscountDecision {
	if voucher == nil {
		return domain.DiscountDecision{Reason: domain.RejectUnknownCode}
	}

	decision := domain.DiscountDecision{Code: voucher.Code}

	switch {
	case now.Before(voucher.ValidFrom):
		decision.Reason = domain.RejectNotYetValid
	case now.After(voucher.ValidTo):
		decision.Reason = domain.RejectExpired
	case subtotal < voucher.MinSubtotal:
		decision.Reason = domain.RejectMinSubtotal
	case voucher.UsageLimit > 0 && voucher.UsageCount >= voucher.UsageLimit:
		decision.Reason = domain.RejectUsageLimit
	default:
		decision.Accepted = true
		decision.Amount = discountAmount(voucher, subtotal)
	}

	return decision
}

func discountAmount(voucher *domain.Voucher, subtotal domain.Money) domain.Money {
	switch voucher.Type {
	case domain.VoucherPercent:
		return roundHalfUpPercent(subtotal, voucher.Value)
	case domain.VoucherFixed:
		amount := domain.Money(voucher.Value)
		if amount > subtotal {
			return subtotal
		}
		return amount
	}
	return 0
}

// roundHalfUpPercent takes pct percent of amount, rounding half up once on
// the derived value.
func roundHalfUpPercent(amount domain.Money, pct int64) domain.Money {
	return domain.Money((int64(amount)*pct + 50) / 100)
}
