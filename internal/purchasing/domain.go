package purchasing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// Purchase order lifecycle statuses. The flow is linear: created orders
// wait for two approval levels before becoming effective.
type Status string

const (
	StatusPendingL1 Status = "PENDING_APPROVAL_1"
	StatusPendingL2 Status = "PENDING_APPROVAL_2"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

// PurchaseOrder domain model.
type PurchaseOrder struct {
	ID               int64
	Ref              uuid.UUID
	Number           string
	VendorID         int64
	SiteID           int64
	BillingAddressID int64
	PaymentTermsID   int64
	OrderDate        time.Time
	DeliveryDate     *time.Time
	Status           Status
	Note             string

	// Document-level charges; fixed-label statuses contribute nothing.
	TransitInsurance pricing.Charge
	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge

	Totals pricing.DocumentTotals
	Lines  []Line
}

// Line is one item row. Derived amounts are always recomputed by the
// pricing engine before persisting; they are never taken from the client.
type Line struct {
	ID     int64
	POID   int64
	ItemID int64

	Qty             decimal.Decimal
	Approved1Qty    decimal.Decimal
	Approved2Qty    decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	CGSTPercent     decimal.Decimal
	SGSTPercent     decimal.Decimal
	IGSTPercent     decimal.Decimal

	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	CGSTAmount     decimal.Decimal
	SGSTAmount     decimal.Decimal
	IGSTAmount     decimal.Decimal
	LineTotal      decimal.Decimal

	// IndentLineID back-references the source indent line when the row
	// came from an allocation.
	IndentLineID *int64
	FromIndent   bool
	Remark       string
}

// pricingLine adapts the row to the calculator's input.
func (l Line) pricingLine() pricing.Line {
	return pricing.Line{
		ItemID:          l.ItemID,
		Qty:             l.Qty,
		Approved1Qty:    l.Approved1Qty,
		Approved2Qty:    l.Approved2Qty,
		Rate:            l.Rate,
		DiscountPercent: l.DiscountPercent,
		CGSTPercent:     l.CGSTPercent,
		SGSTPercent:     l.SGSTPercent,
		IGSTPercent:     l.IGSTPercent,
	}
}

// applyMetrics writes the calculator output back onto the row.
func (l *Line) applyMetrics(m pricing.LineMetrics) {
	l.DiscountAmount = m.DiscountAmount
	l.TaxableAmount = m.TaxableAmount
	l.CGSTAmount = m.CGSTAmount
	l.SGSTAmount = m.SGSTAmount
	l.IGSTAmount = m.IGSTAmount
	l.LineTotal = m.LineTotal
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
	// ErrAllocation indicates an allocation that does not fit remaining
	// indent capacity.
	ErrAllocation = errors.New("purchasing: allocation exceeds indent capacity")
)

// LimitError carries the vendor limit violation message in the legacy wire
// format produced by the limits package.
type LimitError struct {
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}
