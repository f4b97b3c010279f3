package purchasing

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/allocation"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// LineReq is one item row as submitted by the form. Numeric fields are
// lenient: half-typed values coerce to zero instead of failing the request.
type LineReq struct {
	ID              int64          `json:"id,omitempty"`
	ItemID          int64          `json:"item_id" validate:"required,gt=0"`
	Qty             pricing.Number `json:"qty"`
	Approved1Qty    pricing.Number `json:"approved1_qty"`
	Approved2Qty    pricing.Number `json:"approved2_qty"`
	Rate            pricing.Number `json:"rate"`
	DiscountPercent pricing.Number `json:"discount_percent"`
	CGSTPercent     pricing.Number `json:"cgst_percent"`
	SGSTPercent     pricing.Number `json:"sgst_percent"`
	IGSTPercent     pricing.Number `json:"igst_percent"`
	IndentLineID    *int64         `json:"indent_line_id,omitempty"`
	FromIndent      bool           `json:"from_indent"`
	Remark          string         `json:"remark"`
}

// percentFields is used for range validation messages.
var percentFields = []struct {
	name string
	get  func(LineReq) decimal.Decimal
}{
	{"discount_percent", func(l LineReq) decimal.Decimal { return l.DiscountPercent.Decimal }},
	{"cgst_percent", func(l LineReq) decimal.Decimal { return l.CGSTPercent.Decimal }},
	{"sgst_percent", func(l LineReq) decimal.Decimal { return l.SGSTPercent.Decimal }},
	{"igst_percent", func(l LineReq) decimal.Decimal { return l.IGSTPercent.Decimal }},
}

// SplitReq mirrors allocation.Split on the wire.
type SplitReq struct {
	IndentLineID int64          `json:"indent_line_id" validate:"required,gt=0"`
	Qty          pricing.Number `json:"qty"`
}

// CreateRequest is the JSON payload for creating a purchase order. The
// indent fields are present only for indent-sourced creation.
type CreateRequest struct {
	Number           string         `json:"number"`
	VendorID         int64          `json:"vendor_id" validate:"required,gt=0"`
	SiteID           int64          `json:"site_id" validate:"required,gt=0"`
	BillingAddressID int64          `json:"billing_address_id"`
	PaymentTermsID   int64          `json:"payment_terms_id"`
	OrderDate        time.Time      `json:"order_date"`
	DeliveryDate     *time.Time     `json:"delivery_date,omitempty"`
	Note             string         `json:"note"`
	ActorID          int64          `json:"actor_id" validate:"required,gt=0"`
	TransitInsurance pricing.Charge `json:"transit_insurance"`
	HandlingCharge   pricing.Charge `json:"handling_charge"`
	GSTReverseCharge pricing.Charge `json:"gst_reverse_charge"`
	Lines            []LineReq      `json:"lines" validate:"required,min=1,dive"`

	IndentIDs   []int64              `json:"indent_ids,omitempty"`
	Allocations map[int64][]SplitReq `json:"allocations,omitempty"`
}

// UpdateRequest edits a pending order. When StatusAction is present the
// request is an approval submission instead of a plain edit.
type UpdateRequest struct {
	DeliveryDate     *time.Time     `json:"delivery_date,omitempty"`
	Note             string         `json:"note"`
	ActorID          int64          `json:"actor_id" validate:"required,gt=0"`
	StatusAction     string         `json:"status_action,omitempty" validate:"omitempty,oneof=approve1 approve2"`
	TransitInsurance pricing.Charge `json:"transit_insurance"`
	HandlingCharge   pricing.Charge `json:"handling_charge"`
	GSTReverseCharge pricing.Charge `json:"gst_reverse_charge"`
	Lines            []LineReq      `json:"lines" validate:"required,min=1,dive"`
}

// PrepareRequest selects the indents to merge.
type PrepareRequest struct {
	IndentIDs []int64 `json:"indent_ids" validate:"required,min=1"`
}

// validatePercentRanges enforces the 0..100 window the calculator itself
// deliberately does not enforce.
func validatePercentRanges(lines []LineReq) map[string]string {
	fields := make(map[string]string)
	hundred := decimal.NewFromInt(100)
	for i, line := range lines {
		for _, pf := range percentFields {
			v := pf.get(line)
			if v.IsNegative() || v.GreaterThan(hundred) {
				fields[field(i, pf.name)] = "must be between 0 and 100"
			}
		}
		if line.Qty.IsNegative() {
			fields[field(i, "qty")] = "must not be negative"
		}
		if line.Rate.IsNegative() {
			fields[field(i, "rate")] = "must not be negative"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func field(row int, name string) string {
	return "lines[" + strconv.Itoa(row) + "]." + name
}

func (r CreateRequest) toInput() CreateInput {
	input := CreateInput{
		Number:           r.Number,
		VendorID:         r.VendorID,
		SiteID:           r.SiteID,
		BillingAddressID: r.BillingAddressID,
		PaymentTermsID:   r.PaymentTermsID,
		OrderDate:        r.OrderDate,
		DeliveryDate:     r.DeliveryDate,
		Note:             r.Note,
		ActorID:          r.ActorID,
		TransitInsurance: r.TransitInsurance,
		HandlingCharge:   r.HandlingCharge,
		GSTReverseCharge: r.GSTReverseCharge,
		IndentIDs:        r.IndentIDs,
	}
	for _, line := range r.Lines {
		input.Lines = append(input.Lines, line.toInput())
	}
	if len(r.Allocations) > 0 {
		input.Allocations = make(map[int64][]allocation.Split, len(r.Allocations))
		for itemID, splits := range r.Allocations {
			for _, s := range splits {
				input.Allocations[itemID] = append(input.Allocations[itemID], allocation.Split{
					IndentLineID: s.IndentLineID,
					Qty:          s.Qty.Decimal,
				})
			}
		}
	}
	return input
}

func (l LineReq) toInput() LineInput {
	return LineInput{
		ItemID:          l.ItemID,
		Qty:             l.Qty.Decimal,
		Rate:            l.Rate.Decimal,
		DiscountPercent: l.DiscountPercent.Decimal,
		CGSTPercent:     l.CGSTPercent.Decimal,
		SGSTPercent:     l.SGSTPercent.Decimal,
		IGSTPercent:     l.IGSTPercent.Decimal,
		IndentLineID:    l.IndentLineID,
		FromIndent:      l.FromIndent,
		Remark:          l.Remark,
	}
}

// POView is the JSON shape of a purchase order.
type POView struct {
	ID               int64          `json:"id"`
	Ref              string         `json:"ref"`
	Number           string         `json:"number"`
	VendorID         int64          `json:"vendor_id"`
	SiteID           int64          `json:"site_id"`
	BillingAddressID int64          `json:"billing_address_id,omitempty"`
	PaymentTermsID   int64          `json:"payment_terms_id,omitempty"`
	OrderDate        time.Time      `json:"order_date"`
	DeliveryDate     *time.Time     `json:"delivery_date,omitempty"`
	Status           Status         `json:"status"`
	Note             string         `json:"note,omitempty"`
	TransitInsurance pricing.Charge `json:"transit_insurance"`
	HandlingCharge   pricing.Charge `json:"handling_charge"`
	GSTReverseCharge pricing.Charge `json:"gst_reverse_charge"`
	Totals           TotalsView     `json:"totals"`
	Lines            []LineView     `json:"lines"`
}

// TotalsView serializes document totals as strings.
type TotalsView struct {
	DiscountAmount pricing.Number `json:"discount_amount"`
	TaxableAmount  pricing.Number `json:"taxable_amount"`
	CGSTAmount     pricing.Number `json:"cgst_amount"`
	SGSTAmount     pricing.Number `json:"sgst_amount"`
	IGSTAmount     pricing.Number `json:"igst_amount"`
	LineTotal      pricing.Number `json:"line_total"`
	ChargeAmount   pricing.Number `json:"charge_amount"`
	GrandTotal     pricing.Number `json:"grand_total"`
}

// LineView is the JSON shape of a PO line.
type LineView struct {
	ID              int64          `json:"id"`
	ItemID          int64          `json:"item_id"`
	Qty             pricing.Number `json:"qty"`
	Approved1Qty    pricing.Number `json:"approved1_qty"`
	Approved2Qty    pricing.Number `json:"approved2_qty"`
	Rate            pricing.Number `json:"rate"`
	DiscountPercent pricing.Number `json:"discount_percent"`
	CGSTPercent     pricing.Number `json:"cgst_percent"`
	SGSTPercent     pricing.Number `json:"sgst_percent"`
	IGSTPercent     pricing.Number `json:"igst_percent"`
	DiscountAmount  pricing.Number `json:"discount_amount"`
	TaxableAmount   pricing.Number `json:"taxable_amount"`
	CGSTAmount      pricing.Number `json:"cgst_amount"`
	SGSTAmount      pricing.Number `json:"sgst_amount"`
	IGSTAmount      pricing.Number `json:"igst_amount"`
	LineTotal       pricing.Number `json:"line_total"`
	IndentLineID    *int64         `json:"indent_line_id,omitempty"`
	FromIndent      bool           `json:"from_indent"`
	Remark          string         `json:"remark,omitempty"`
}

func toView(po PurchaseOrder) POView {
	view := POView{
		ID:               po.ID,
		Ref:              po.Ref.String(),
		Number:           po.Number,
		VendorID:         po.VendorID,
		SiteID:           po.SiteID,
		BillingAddressID: po.BillingAddressID,
		PaymentTermsID:   po.PaymentTermsID,
		OrderDate:        po.OrderDate,
		DeliveryDate:     po.DeliveryDate,
		Status:           po.Status,
		Note:             po.Note,
		TransitInsurance: po.TransitInsurance,
		HandlingCharge:   po.HandlingCharge,
		GSTReverseCharge: po.GSTReverseCharge,
		Totals: TotalsView{
			DiscountAmount: pricing.NewNumber(po.Totals.DiscountAmount),
			TaxableAmount:  pricing.NewNumber(po.Totals.TaxableAmount),
			CGSTAmount:     pricing.NewNumber(po.Totals.CGSTAmount),
			SGSTAmount:     pricing.NewNumber(po.Totals.SGSTAmount),
			IGSTAmount:     pricing.NewNumber(po.Totals.IGSTAmount),
			LineTotal:      pricing.NewNumber(po.Totals.LineTotal),
			ChargeAmount:   pricing.NewNumber(po.Totals.ChargeAmount),
			GrandTotal:     pricing.NewNumber(po.Totals.GrandTotal),
		},
		Lines: make([]LineView, 0, len(po.Lines)),
	}
	for _, line := range po.Lines {
		view.Lines = append(view.Lines, LineView{
			ID:              line.ID,
			ItemID:          line.ItemID,
			Qty:             pricing.NewNumber(line.Qty),
			Approved1Qty:    pricing.NewNumber(line.Approved1Qty),
			Approved2Qty:    pricing.NewNumber(line.Approved2Qty),
			Rate:            pricing.NewNumber(line.Rate),
			DiscountPercent: pricing.NewNumber(line.DiscountPercent),
			CGSTPercent:     pricing.NewNumber(line.CGSTPercent),
			SGSTPercent:     pricing.NewNumber(line.SGSTPercent),
			IGSTPercent:     pricing.NewNumber(line.IGSTPercent),
			DiscountAmount:  pricing.NewNumber(line.DiscountAmount),
			TaxableAmount:   pricing.NewNumber(line.TaxableAmount),
			CGSTAmount:      pricing.NewNumber(line.CGSTAmount),
			SGSTAmount:      pricing.NewNumber(line.SGSTAmount),
			IGSTAmount:      pricing.NewNumber(line.IGSTAmount),
			LineTotal:       pricing.NewNumber(line.LineTotal),
			IndentLineID:    line.IndentLineID,
			FromIndent:      line.FromIndent,
			Remark:          line.Remark,
		})
	}
	return view
}

// PrepareView is the response of the prepare-from-indents call.
type PrepareView struct {
	Lines        []LineView           `json:"lines"`
	Allocations  map[int64][]SplitReq `json:"allocations"`
	SiteID       int64                `json:"site_id,omitempty"`
	DeliveryDate *time.Time           `json:"delivery_date,omitempty"`
}

func toPrepareView(res PrepareResult) PrepareView {
	view := PrepareView{
		Allocations:  make(map[int64][]SplitReq, len(res.Allocations)),
		SiteID:       res.SiteID,
		DeliveryDate: res.DeliveryDate,
	}
	for _, line := range res.Lines {
		view.Lines = append(view.Lines, LineView{
			ItemID:       line.ItemID,
			Qty:          pricing.NewNumber(line.Qty),
			IndentLineID: line.IndentLineID,
			FromIndent:   true,
			Remark:       line.Remark,
		})
	}
	for itemID, splits := range res.Allocations {
		for _, s := range splits {
			view.Allocations[itemID] = append(view.Allocations[itemID], SplitReq{
				IndentLineID: s.IndentLineID,
				Qty:          pricing.NewNumber(s.Qty),
			})
		}
	}
	return view
}
