// Package allocation merges approved indent quantities into order lines.
// Capacity is consumed oldest indent first, and the per-source splits are
// kept so the order can be booked back against each indent line.
package allocation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Indent is the read-side view of an approved requisition document.
type Indent struct {
	ID           int64
	Number       string
	Date         time.Time
	SiteID       int64
	DeliveryDate *time.Time
	Lines        []IndentLine
}

// IndentLine carries one approved item with its consumption history.
type IndentLine struct {
	ID           int64
	ItemID       int64
	Approved2Qty decimal.Decimal
	// Consumed holds the ordered quantities of purchase orders already
	// booked against this line.
	Consumed []decimal.Decimal
	Remark   string
}

// Remaining is the capacity still open on the line, never negative.
func (l IndentLine) Remaining() decimal.Decimal {
	left := l.Approved2Qty
	for _, qty := range l.Consumed {
		left = left.Sub(qty)
	}
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Split records how much of a merged line comes from one indent line.
type Split struct {
	IndentLineID int64
	Qty          decimal.Decimal
}

// MergedLine is one output order line per distinct item. Rate and tax
// fields are intentionally absent; they are user-entered afterwards.
type MergedLine struct {
	ItemID int64
	Qty    decimal.Decimal
	Remark string
	// IndentLineID points at the first contributing source line.
	IndentLineID int64
}

// Result bundles the merged lines, the per-item splits for submission,
// and the header autofill hints derived from the contributing indents.
type Result struct {
	Lines       []MergedLine
	Allocations map[int64][]Split
	// SiteID is set only when every contributing indent names the same site.
	SiteID int64
	// DeliveryDate is set only for the single-indent case; merged indents
	// may disagree and the date is left for manual entry.
	DeliveryDate *time.Time
}

// Empty reports whether no capacity remained anywhere. Callers keep their
// existing blank line in that case.
func (r Result) Empty() bool {
	return len(r.Lines) == 0
}

type flatLine struct {
	indentID   int64
	indentDate time.Time
	siteID     int64
	line       IndentLine
}

// Allocate walks the indent lines in first-in-first-out order and merges
// the remaining capacity per item.
func Allocate(indents []Indent) Result {
	flat := make([]flatLine, 0)
	for _, ind := range indents {
		for _, line := range ind.Lines {
			flat = append(flat, flatLine{indentID: ind.ID, indentDate: ind.Date, siteID: ind.SiteID, line: line})
		}
	}

	// The FIFO key is strictly (indent date, indent id, line id).
	sort.SliceStable(flat, func(i, j int) bool {
		if !flat[i].indentDate.Equal(flat[j].indentDate) {
			return flat[i].indentDate.Before(flat[j].indentDate)
		}
		if flat[i].indentID != flat[j].indentID {
			return flat[i].indentID < flat[j].indentID
		}
		return flat[i].line.ID < flat[j].line.ID
	})

	type itemAccum struct {
		qty          decimal.Decimal
		splits       []Split
		contributors map[int64]struct{}
		remark       string
		firstLineID  int64
	}

	accums := make(map[int64]*itemAccum)
	itemOrder := make([]int64, 0)
	contributingSites := make(map[int64]struct{})
	anyContribution := false

	for _, f := range flat {
		remaining := f.line.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		acc, ok := accums[f.line.ItemID]
		if !ok {
			acc = &itemAccum{contributors: make(map[int64]struct{}), remark: f.line.Remark, firstLineID: f.line.ID}
			accums[f.line.ItemID] = acc
			itemOrder = append(itemOrder, f.line.ItemID)
		}
		acc.qty = acc.qty.Add(remaining)
		acc.splits = append(acc.splits, Split{IndentLineID: f.line.ID, Qty: remaining})
		acc.contributors[f.indentID] = struct{}{}
		contributingSites[f.siteID] = struct{}{}
		anyContribution = true
	}

	result := Result{Allocations: make(map[int64][]Split)}
	if !anyContribution {
		return result
	}

	for _, itemID := range itemOrder {
		acc := accums[itemID]
		remark := acc.remark
		if len(acc.contributors) > 1 {
			// Ambiguous provenance: never concatenate or guess.
			remark = ""
		}
		result.Lines = append(result.Lines, MergedLine{
			ItemID:       itemID,
			Qty:          acc.qty,
			Remark:       remark,
			IndentLineID: acc.firstLineID,
		})
		result.Allocations[itemID] = acc.splits
	}

	if len(contributingSites) == 1 {
		for siteID := range contributingSites {
			result.SiteID = siteID
		}
	}
	if len(indents) == 1 {
		result.DeliveryDate = indents[0].DeliveryDate
	}
	return result
}
