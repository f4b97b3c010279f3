package indents

import (
	"time"

	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
)

// CreateRequest is the JSON payload for creating an indent.
type CreateRequest struct {
	Number       string          `json:"number"`
	SiteID       int64           `json:"site_id" validate:"required,gt=0"`
	Date         time.Time       `json:"date"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
	Note         string          `json:"note"`
	Lines        []CreateLineReq `json:"lines" validate:"required,min=1,dive"`
}

// CreateLineReq is one requested item row.
type CreateLineReq struct {
	ItemID int64          `json:"item_id" validate:"required,gt=0"`
	Qty    pricing.Number `json:"qty"`
	Remark string         `json:"remark"`
}

// ApproveRequest carries approved quantities for one level.
type ApproveRequest struct {
	Level   int                      `json:"level" validate:"required,oneof=1 2"`
	ActorID int64                    `json:"actor_id" validate:"required,gt=0"`
	Qtys    map[int64]pricing.Number `json:"qtys"`
}

// SubmitRequest identifies the submitting actor.
type SubmitRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
}

// IndentView is the JSON shape of an indent. Quantities serialize as
// strings to avoid float drift on the wire.
type IndentView struct {
	ID           int64      `json:"id"`
	Ref          string     `json:"ref"`
	Number       string     `json:"number"`
	SiteID       int64      `json:"site_id"`
	Date         time.Time  `json:"date"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
	Status       Status     `json:"status"`
	Note         string     `json:"note,omitempty"`
	Lines        []LineView `json:"lines"`
}

// LineView is the JSON shape of an indent line.
type LineView struct {
	ID           int64          `json:"id"`
	ItemID       int64          `json:"item_id"`
	Qty          pricing.Number `json:"qty"`
	Approved1Qty pricing.Number `json:"approved1_qty"`
	Approved2Qty pricing.Number `json:"approved2_qty"`
	Remark       string         `json:"remark,omitempty"`
	OrderedQty   pricing.Number `json:"ordered_qty"`
}

func toView(ind Indent) IndentView {
	view := IndentView{
		ID:           ind.ID,
		Ref:          ind.Ref.String(),
		Number:       ind.Number,
		SiteID:       ind.SiteID,
		Date:         ind.Date,
		DeliveryDate: ind.DeliveryDate,
		Status:       ind.Status,
		Note:         ind.Note,
		Lines:        make([]LineView, 0, len(ind.Lines)),
	}
	for _, line := range ind.Lines {
		ordered := pricing.Number{}
		for _, c := range line.Consumptions {
			ordered.Decimal = ordered.Decimal.Add(c.OrderedQty)
		}
		view.Lines = append(view.Lines, LineView{
			ID:           line.ID,
			ItemID:       line.ItemID,
			Qty:          pricing.NewNumber(line.Qty),
			Approved1Qty: pricing.NewNumber(line.Approved1Qty),
			Approved2Qty: pricing.NewNumber(line.Approved2Qty),
			Remark:       line.Remark,
			OrderedQty:   ordered,
		})
	}
	return view
}
