package billingaddresses

import "time"

// BillingAddress is a company billing identity a purchase order invoices
// against. The GSTIN drives which tax split applies on the order.
type BillingAddress struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	GSTIN     string    `json:"gstin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
