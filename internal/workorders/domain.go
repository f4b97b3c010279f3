package workorders

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// Work order lifecycle statuses, the same two-level approval flow used
// for purchase orders.
type Status string

const (
	StatusPendingL1 Status = "PENDING_APPROVAL_1"
	StatusPendingL2 Status = "PENDING_APPROVAL_2"
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

// WorkOrder domain model. Work orders are placed on contractors instead
// of suppliers, so there is no billing address and no transit insurance,
// only a handling charge and the reverse charge flag.
type WorkOrder struct {
	ID             int64
	Ref            uuid.UUID
	Number         string
	VendorID       int64
	SiteID         int64
	PaymentTermsID int64
	OrderDate      time.Time
	DeliveryDate   *time.Time
	Status         Status
	Note           string

	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge

	Totals pricing.DocumentTotals
	Lines  []Line
}

// Line is one work item row. Derived amounts are recomputed before
// persisting, never taken from the client.
type Line struct {
	ID     int64
	WOID   int64
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

	IndentLineID *int64
	FromIndent   bool
	Remark       string
}

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
	ErrNotFound = errors.New("workorders: not found")
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("workorders: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("workorders: invalid input")
	// ErrAllocation indicates an allocation that does not fit remaining
	// indent capacity.
	ErrAllocation = errors.New("workorders: allocation exceeds indent capacity")
)

// LimitError carries the vendor limit violation message in the legacy wire
// format produced by the limits package.
type LimitError struct {
	Message string
}

func (e *LimitError) Error() string {
	return e.Message
}
