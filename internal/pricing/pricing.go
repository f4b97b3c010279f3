// Package pricing implements the order line pricing engine shared by
// purchase orders and work orders. Every intermediate value is rounded
// to 2 decimal places before the next step consumes it, so totals match
// what downstream ledgers book line by line.
package pricing

import "github.com/shopspring/decimal"

// Mode selects which quantity column drives the calculation.
type Mode int

const (
	// ModeCreate uses the ordered quantity.
	ModeCreate Mode = iota
	// ModeEdit uses the ordered quantity.
	ModeEdit
	// ModeApproveLevel1 uses the level-1 approved quantity.
	ModeApproveLevel1
	// ModeApproveLevel2 uses the level-2 approved quantity.
	ModeApproveLevel2
)

// Line carries the user-entered fields of one order line. Quantities other
// than the mode-selected one are ignored by Compute but kept for history.
type Line struct {
	ItemID          int64
	Qty             decimal.Decimal
	Approved1Qty    decimal.Decimal
	Approved2Qty    decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	CGSTPercent     decimal.Decimal
	SGSTPercent     decimal.Decimal
	IGSTPercent     decimal.Decimal
}

// LineMetrics is the derived output of Compute. It echoes the inputs used
// so callers can persist exactly what was calculated.
type LineMetrics struct {
	Quantity        decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	CGSTPercent     decimal.Decimal
	SGSTPercent     decimal.Decimal
	IGSTPercent     decimal.Decimal

	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	IGSTAmount     decimal.Decimal
	LineTotal      decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// round2 rounds half away from zero at 2 decimal places. For the
// non-negative money amounts this engine produces that is half-up.
func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// quantityFor picks the active quantity column for the mode.
func quantityFor(line Line, mode Mode) decimal.Decimal {
	switch mode {
	case ModeApproveLevel2:
		return line.Approved2Qty
	case ModeApproveLevel1:
		return line.Approved1Qty
	default:
		return line.Qty
	}
}

// Compute derives discount, taxes and line total for one line. It is pure
// and idempotent. Out-of-range inputs (negative rates, percents above 100)
// are computed as-is; range enforcement belongs to the request validators.
func Compute(line Line, mode Mode) LineMetrics {
	qty := quantityFor(line, mode)
	base := round2(qty.Mul(line.Rate))
	discount := round2(base.Mul(line.DiscountPercent).Div(oneHundred))
	taxable := round2(base.Sub(discount))
	cgst := round2(taxable.Mul(line.CGSTPercent).Div(oneHundred))
	sgst := round2(taxable.Mul(line.SGSTPercent).Div(oneHundred))
	igst := round2(taxable.Mul(line.IGSTPercent).Div(oneHundred))
	total := round2(taxable.Add(cgst).Add(sgst).Add(igst))

	return LineMetrics{
		Quantity:        qty,
		Rate:            line.Rate,
		DiscountPercent: line.DiscountPercent,
		CGSTPercent:     line.CGSTPercent,
		SGSTPercent:     line.SGSTPercent,
		IGSTPercent:     line.IGSTPercent,
		BaseAmount:      base,
		DiscountAmount:  discount,
		TaxableAmount:   taxable,
		CGSTAmount:      cgst,
		SGSTAmount:      sgst,
		IGSTAmount:      igst,
		LineTotal:       total,
	}
}
