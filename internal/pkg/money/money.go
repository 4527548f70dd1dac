// Package money holds the bounds shared by every whole-rupiah amount.
package money

import "math"

// MaxAmount caps any single amount taken from user input. Multiplying it by a
// percentage or a month count stays well inside int64.
const MaxAmount int64 = 1_000_000_000_000_000

// InRange reports whether amount is positive and not above MaxAmount.
func InRange(amount int64) bool {
	return amount > 0 && amount <= MaxAmount
}

// Add returns a+b and false when the sum does not fit in int64.
func Add(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
