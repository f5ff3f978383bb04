package domain

import "time"

type VoucherType string

const (
	VoucherPercent VoucherType = "percent"
	VoucherFixed   VoucherType = "fixed"
)

// Voucher is a discount code. Value is whole percent points for percent
// vouchers and cents for fixed ones. UsageLimit zero means unlimited.
type Voucher struct {
	Code        string      `json:"code"`
	Type        VoucherType `json:"type"`
	Value       int64       `json:"value"`
	MinSubtotal Money       `json:"min_subtotal_cents"`
	ValidFrom   time.Time   `json:"valid_from"`
	ValidTo     time.Time   `json:"valid_to"`
	UsageLimit  int64       `json:"usage_limit"`
	UsageCount  int64       `json:"usage_count"`
}

type VoucherRejectReason string

const (
	RejectUnknownCode VoucherRejectReason = "unknown_code"
	RejectNotYetValid VoucherRejectReason = "not_yet_valid"
	RejectExpired     VoucherRejectReason = "expired"
	RejectMinSubtotal VoucherRejectReason = "min_subtotal_not_met"
	RejectUsageLimit  VoucherRejectReason = "usage_limit_reached"
)

// DiscountDecision is the outcome of evaluating a voucher against a
// subtotal. A rejected decision carries the reason and a zero amount.
type DiscountDecision struct {
	Code     string              `json:"code,omitempty"`
	Accepted bool                `json:"accepted"`
	Amount   Money               `json:"amount_cents"`
	Reason   VoucherRejectReason `json:"reason,omitempty"`
}
