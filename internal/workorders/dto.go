package workorders

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/allocation"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// LineReq is one work item row as submitted by the form.
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

// SplitReq mirrors allocation.Split on the wire.
type SplitReq struct {
	IndentLineID int64          `json:"indent_line_id" validate:"required,gt=0"`
	Qty          pricing.Number `json:"qty"`
}

// CreateRequest is the JSON payload for creating a work order.
type CreateRequest struct {
	Number           string         `json:"number"`
	VendorID         int64          `json:"vendor_id" validate:"required,gt=0"`
	SiteID           int64          `json:"site_id" validate:"required,gt=0"`
	PaymentTermsID   int64          `json:"payment_terms_id"`
	OrderDate        time.Time      `json:"order_date"`
	DeliveryDate     *time.Time     `json:"delivery_date,omitempty"`
	Note             string         `json:"note"`
	ActorID          int64          `json:"actor_id" validate:"required,gt=0"`
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
	HandlingCharge   pricing.Charge `json:"handling_charge"`
	GSTReverseCharge pricing.Charge `json:"gst_reverse_charge"`
	Lines            []LineReq      `json:"lines" validate:"required,min=1,dive"`
}

// PrepareRequest selects the indents to merge.
type PrepareRequest struct {
	IndentIDs []int64 `json:"indent_ids" validate:"required,min=1"`
}

// validatePercentRanges enforces the 0..100 window on the tax and
// discount percentages.
func validatePercentRanges(lines []LineReq) map[string]string {
	fields := make(map[string]string)
	hundred := decimal.NewFromInt(100)
	check := func(row int, name string, v decimal.Decimal) {
		if v.IsNegative() || v.GreaterThan(hundred) {
			fields[fieldName(row, name)] = "must be between 0 and 100"
		}
	}
	for i, line := range lines {
		check(i, "discount_percent", line.DiscountPercent.Decimal)
		check(i, "cgst_percent", line.CGSTPercent.Decimal)
		check(i, "sgst_percent", line.SGSTPercent.Decimal)
		check(i, "igst_percent", line.IGSTPercent.Decimal)
		if line.Qty.IsNegative() {
			fields[fieldName(i, "qty")] = "must not be negative"
		}
		if line.Rate.IsNegative() {
			fields[fieldName(i, "rate")] = "must not be negative"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldName(row int, name string) string {
	return "lines[" + strconv.Itoa(row) + "]." + name
}

func (r CreateRequest) toInput() CreateInput {
	input := CreateInput{
		Number:           r.Number,
		VendorID:         r.VendorID,
		SiteID:           r.SiteID,
		PaymentTermsID:   r.PaymentTermsID,
		OrderDate:        r.OrderDate,
		DeliveryDate:     r.DeliveryDate,
		Note:             r.Note,
		ActorID:          r.ActorID,
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

// WOView is the JSON shape of a work order.
type WOView struct {
	ID               int64          `json:"id"`
	Ref              string         `json:"ref"`
	Number           string         `json:"number"`
	VendorID         int64          `json:"vendor_id"`
	SiteID           int64          `json:"site_id"`
	PaymentTermsID   int64          `json:"payment_terms_id,omitempty"`
	OrderDate        time.Time      `json:"order_date"`
	DeliveryDate     *time.Time     `json:"delivery_date,omitempty"`
	Status           Status         `json:"status"`
	Note             string         `json:"note,omitempty"`
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

// LineView is the JSON shape of a work order line.
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

func toView(wo WorkOrder) WOView {
	view := WOView{
		ID:               wo.ID,
		Ref:              wo.Ref.String(),
		Number:           wo.Number,
		VendorID:         wo.VendorID,
		SiteID:           wo.SiteID,
		PaymentTermsID:   wo.PaymentTermsID,
		OrderDate:        wo.OrderDate,
		DeliveryDate:     wo.DeliveryDate,
		Status:           wo.Status,
		Note:             wo.Note,
		HandlingCharge:   wo.HandlingCharge,
		GSTReverseCharge: wo.GSTReverseCharge,
		Totals: TotalsView{
			DiscountAmount: pricing.NewNumber(wo.Totals.DiscountAmount),
			TaxableAmount:  pricing.NewNumber(wo.Totals.TaxableAmount),
			CGSTAmount:     pricing.NewNumber(wo.Totals.CGSTAmount),
			SGSTAmount:     pricing.NewNumber(wo.Totals.SGSTAmount),
			IGSTAmount:     pricing.NewNumber(wo.Totals.IGSTAmount),
			LineTotal:      pricing.NewNumber(wo.Totals.LineTotal),
			ChargeAmount:   pricing.NewNumber(wo.Totals.ChargeAmount),
			GrandTotal:     pricing.NewNumber(wo.Totals.GrandTotal),
		},
		Lines: make([]LineView, 0, len(wo.Lines)),
	}
	for _, line := range wo.Lines {
		view.Lines = append(view.Lines, lineView(line))
	}
	return view
}

func lineView(line Line) LineView {
	return LineView{
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
	}
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
