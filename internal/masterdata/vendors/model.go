package vendors

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor represents a supplier or contractor. The Max* columns cap what a
// single order line may carry; nil means no cap.
type Vendor struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	ContactName  string           `json:"contact_name"`
	Phone        string           `json:"phone"`
	Email        string           `json:"email"`
	Address      string           `json:"address"`
	GSTIN        string           `json:"gstin"`
	MaxItemQty   *decimal.Decimal `json:"max_item_qty,omitempty"`
	MaxRate      *decimal.Decimal `json:"max_rate,omitempty"`
	MaxLineValue *decimal.Decimal `json:"max_line_value,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
