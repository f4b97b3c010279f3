package pricing

import "github.com/shopspring/decimal"

// RunningTotal accumulates amounts with the same round-at-each-step
// discipline as the line calculation, so a document total never drifts
// from the sum of its displayed lines.
type RunningTotal struct {
	total decimal.Decimal
}

// Add folds one amount into the total and rounds the result.
func (t *RunningTotal) Add(v decimal.Decimal) {
	t.total = round2(t.total.Add(v))
}

// Value returns the accumulated total.
func (t *RunningTotal) Value() decimal.Decimal {
	return t.total
}

// DocumentTotals aggregates line metrics and charges for a document header.
type DocumentTotals struct {
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	IGSTAmount     decimal.Decimal
	LineTotal      decimal.Decimal
	ChargeAmount   decimal.Decimal
	GrandTotal     decimal.Decimal
}

// ComputeDocumentTotals sums line metrics column by column and adds the
// contribution of each charge, rounding after every addition.
func ComputeDocumentTotals(lines []LineMetrics, charges []Charge) DocumentTotals {
	var discount, taxable, cgst, sgst, igst, total RunningTotal
	for _, m := range lines {
		discount.Add(m.DiscountAmount)
		taxable.Add(m.TaxableAmount)
		cgst.Add(m.CGSTAmount)
		sgst.Add(m.SGSTAmount)
		igst.Add(m.IGSTAmount)
		total.Add(m.LineTotal)
	}

	var chargeSum, grand RunningTotal
	grand.Add(total.Value())
	for _, c := range charges {
		chargeSum.Add(c.Contribution())
		grand.Add(c.Contribution())
	}

	return DocumentTotals{
		DiscountAmount: discount.Value(),
		TaxableAmount:  taxable.Value(),
		CGSTAmount:     cgst.Value(),
		SGSTAmount:     sgst.Value(),
		IGSTAmount:     igst.Value(),
		LineTotal:      total.Value(),
		ChargeAmount:   chargeSum.Value(),
		GrandTotal:     grand.Value(),
	}
}
