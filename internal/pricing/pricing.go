package pricing

import "github.com/shopspring/decimal"

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// LineInput describes one priced line before totaling.
type LineInput struct {
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	Quantity        int
}

// ClampDiscount bounds a discount percentage to [0, 100].
func ClampDiscount(pct decimal.Decimal) decimal.Decimal {
	if pct.LessThan(zero) {
		return zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// LineTotal computes unit_price * quantity * (1 - discount/100), rounded to
// two decimal places after the full multiplication so per-unit rounding never
// drifts the total.
func LineTotal(in LineInput) decimal.Decimal {
	if in.Quantity <= 0 {
		return zero.Round(2)
	}
	discount := ClampDiscount(in.DiscountPercent)
	multiplier := hundred.Sub(discount).Div(hundred)
	qty := decimal.NewFromInt(int64(in.Quantity))
	return in.UnitPrice.Mul(qty).Mul(multiplier).Round(2)
}

// OrderTotal sums the line totals for the provided lines.
func OrderTotal(lines []LineInput) decimal.Decimal {
	total := zero
	for _, line := range lines {
		total = total.Add(LineTotal(line))
	}
	return total.Round(2)
}
