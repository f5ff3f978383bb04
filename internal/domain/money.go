package domain

import "fmt"

// Money is an amount in minor currency units (cents). All arithmetic on
// prices and totals stays in integers; rounding happens once per derived
// amount, never on intermediate values.
type Money int64

// String renders the amount as a decimal string, e.g. 10220 -> "102.20".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}
