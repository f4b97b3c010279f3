package indents

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Indent lifecycle statuses. The flow is linear; each approval level may
// reduce quantities below what was requested.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved1 Status = "APPROVED_L1"
	StatusApproved2 Status = "APPROVED_L2"
	StatusClosed    Status = "CLOSED"
)

// Indent is an internal requisition whose level-2 approved quantities cap
// how much can be ordered against it.
type Indent struct {
	ID           int64
	Ref          uuid.UUID
	Number       string
	SiteID       int64
	Date         time.Time
	DeliveryDate *time.Time
	Status       Status
	Note         string
	Lines        []Line
}

// Line is one requested item on an indent.
type Line struct {
	ID           int64
	IndentID     int64
	ItemID       int64
	Qty          decimal.Decimal
	Approved1Qty decimal.Decimal
	Approved2Qty decimal.Decimal
	Remark       string
	Consumptions []Consumption
}

// Consumption records an order quantity already booked against the
// line. OrderType is "PO" or "WO".
type Consumption struct {
	OrderType  string
	OrderID    int64
	OrderedQty decimal.Decimal
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("indents: not found")
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = errors.New("indents: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("indents: invalid input")
)
