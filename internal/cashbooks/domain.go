package cashbooks

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes money in from money out.
type EntryKind string

const (
	KindDebit  EntryKind = "DEBIT"
	KindCredit EntryKind = "CREDIT"
)

// Cashbook is a per-site cash register.
type Cashbook struct {
	ID        int64
	SiteID    int64
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entry is one cash movement. Balance carries the running balance after
// this entry, computed with per-step rounding.
type Entry struct {
	ID         int64
	CashbookID int64
	Kind       EntryKind
	Amount     decimal.Decimal
	Balance    decimal.Decimal
	Narration  string
	EntryDate  time.Time
	CreatedAt  time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("cashbooks: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("cashbooks: invalid input")
	// ErrDuplicate indicates a repeated submission of the same entry.
	ErrDuplicate = errors.New("cashbooks: duplicate submission")
)
