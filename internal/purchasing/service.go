package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/allocation"
	"github.com/sitechain-erp/sitechain-erp/internal/limits"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error)
}

// IndentPort loads fully approved indents for allocation.
type IndentPort interface {
	LoadForAllocation(ctx context.Context, ids []int64) ([]allocation.Indent, error)
}

// VendorLimits are the per-vendor ordering caps; nil means unlimited.
type VendorLimits struct {
	MaxItemQty   *decimal.Decimal
	MaxRate      *decimal.Decimal
	MaxLineValue *decimal.Decimal
}

// VendorPort exposes the vendor master data needed for limit checks.
type VendorPort interface {
	Limits(ctx context.Context, vendorID int64) (VendorLimits, error)
}

// ItemPort resolves item display names for limit messages.
type ItemPort interface {
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ApprovalPort records approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// AuditPort records audit history.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase order flows.
type Service struct {
	repo      RepositoryPort
	indents   IndentPort
	vendors   VendorPort
	items     ItemPort
	approvals ApprovalPort
	audit     AuditPort
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, indents IndentPort, vendors VendorPort, items ItemPort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, indents: indents, vendors: vendors, items: items, approvals: approvals, audit: audit}
}

// ListFilters narrow PO listings.
type ListFilters struct {
	Status   string
	VendorID int64
	SiteID   int64
	Search   string
}

// LineInput is one user-entered row.
type LineInput struct {
	ItemID          int64
	Qty             decimal.Decimal
	Rate            decimal.Decimal
	DiscountPercent decimal.Decimal
	CGSTPercent     decimal.Decimal
	SGSTPercent     decimal.Decimal
	IGSTPercent     decimal.Decimal
	IndentLineID    *int64
	FromIndent      bool
	Remark          string
}

// CreateInput describes PO creation, with or without source indents.
type CreateInput struct {
	Number           string
	VendorID         int64
	SiteID           int64
	BillingAddressID int64
	PaymentTermsID   int64
	OrderDate        time.Time
	DeliveryDate     *time.Time
	Note             string
	ActorID          int64

	TransitInsurance pricing.Charge
	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge

	Lines []LineInput

	// IndentIDs plus Allocations are present only for indent-sourced
	// creation; the splits are re-validated against remaining capacity.
	IndentIDs   []int64
	Allocations map[int64][]allocation.Split
}

// PrepareResult is the server-assisted merge for the create-from-indent
// form: merged lines with quantities, the split map to echo back on
// submit, and the header autofill hints.
type PrepareResult struct {
	Lines        []Line
	Allocations  map[int64][]allocation.Split
	SiteID       int64
	DeliveryDate *time.Time
}

// PrepareFromIndents merges remaining approved capacity across the given
// indents in FIFO order. An empty result means nothing is left to order.
func (s *Service) PrepareFromIndents(ctx context.Context, indentIDs []int64) (PrepareResult, error) {
	loaded, err := s.indents.LoadForAllocation(ctx, indentIDs)
	if err != nil {
		return PrepareResult{}, err
	}
	res := allocation.Allocate(loaded)
	out := PrepareResult{
		Allocations:  res.Allocations,
		SiteID:       res.SiteID,
		DeliveryDate: res.DeliveryDate,
	}
	for _, merged := range res.Lines {
		lineID := merged.IndentLineID
		out.Lines = append(out.Lines, Line{
			ItemID:       merged.ItemID,
			Qty:          merged.Qty,
			IndentLineID: &lineID,
			FromIndent:   true,
			Remark:       merged.Remark,
		})
	}
	return out, nil
}

// Create persists a new purchase order in PENDING_APPROVAL_1. Derived
// amounts are recomputed server-side and vendor limits are enforced.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	if input.VendorID <= 0 || input.SiteID <= 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor and site required", ErrValidation)
	}
	if input.Number == "" {
		input.Number = generateNumber("PO")
	}

	po := PurchaseOrder{
		Ref:              uuid.New(),
		Number:           input.Number,
		VendorID:         input.VendorID,
		SiteID:           input.SiteID,
		BillingAddressID: input.BillingAddressID,
		PaymentTermsID:   input.PaymentTermsID,
		OrderDate:        defaultTime(input.OrderDate),
		DeliveryDate:     input.DeliveryDate,
		Status:           StatusPendingL1,
		Note:             input.Note,
		TransitInsurance: input.TransitInsurance,
		HandlingCharge:   input.HandlingCharge,
		GSTReverseCharge: input.GSTReverseCharge,
	}
	for _, in := range input.Lines {
		if in.ItemID <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item required on every line", ErrValidation)
		}
		po.Lines = append(po.Lines, Line{
			ItemID:          in.ItemID,
			Qty:             in.Qty,
			Rate:            in.Rate,
			DiscountPercent: in.DiscountPercent,
			CGSTPercent:     in.CGSTPercent,
			SGSTPercent:     in.SGSTPercent,
			IGSTPercent:     in.IGSTPercent,
			IndentLineID:    in.IndentLineID,
			FromIndent:      in.FromIndent,
			Remark:          in.Remark,
		})
	}
	s.compute(&po, pricing.ModeCreate)

	if err := s.checkLimits(ctx, &po); err != nil {
		return PurchaseOrder{}, err
	}

	splits, err := s.validateAllocations(ctx, input, po.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for i := range po.Lines {
			po.Lines[i].POID = poID
			lineID, err := tx.InsertLine(ctx, po.Lines[i])
			if err != nil {
				return err
			}
			po.Lines[i].ID = lineID
		}
		for _, split := range splits {
			if err := tx.InsertIndentConsumption(ctx, split.IndentLineID, poID, split.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "indents": input.IndentIDs})
	return po, nil
}

// UpdateInput describes an edit of a not-yet-approved PO.
type UpdateInput struct {
	DeliveryDate     *time.Time
	Note             string
	ActorID          int64
	TransitInsurance pricing.Charge
	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge
	Lines            []LineInput
}

// Update replaces lines and recomputes totals. Only orders still waiting
// for the first approval can be edited.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusPendingL1 {
		return PurchaseOrder{}, ErrInvalidState
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}

	po.DeliveryDate = input.DeliveryDate
	po.Note = input.Note
	po.TransitInsurance = input.TransitInsurance
	po.HandlingCharge = input.HandlingCharge
	po.GSTReverseCharge = input.GSTReverseCharge
	po.Lines = po.Lines[:0]
	for _, in := range input.Lines {
		if in.ItemID <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item required on every line", ErrValidation)
		}
		po.Lines = append(po.Lines, Line{
			POID:            id,
			ItemID:          in.ItemID,
			Qty:             in.Qty,
			Rate:            in.Rate,
			DiscountPercent: in.DiscountPercent,
			CGSTPercent:     in.CGSTPercent,
			SGSTPercent:     in.SGSTPercent,
			IGSTPercent:     in.IGSTPercent,
			IndentLineID:    in.IndentLineID,
			FromIndent:      in.FromIndent,
			Remark:          in.Remark,
		})
	}
	s.compute(&po, pricing.ModeEdit)

	if err := s.checkLimits(ctx, &po); err != nil {
		return PurchaseOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for i := range po.Lines {
			lineID, err := tx.InsertLine(ctx, po.Lines[i])
			if err != nil {
				return err
			}
			po.Lines[i].ID = lineID
		}
		return tx.UpdateHeader(ctx, po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "PO_UPDATE", po.ID, map[string]any{"number": po.Number})
	return po, nil
}

// ApproveInput carries the per-line approved quantities for one level.
type ApproveInput struct {
	POID    int64
	Level   int
	ActorID int64
	// Qtys maps PO line id to the approved quantity; omitted lines keep
	// the previous stage's quantity.
	Qtys map[int64]decimal.Decimal
}

// Approve applies the level-1 or level-2 sign-off. Each level may reduce
// quantities, and totals are recomputed from the approved column.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, input.POID)
	if err != nil {
		return PurchaseOrder{}, err
	}

	var next Status
	var mode pricing.Mode
	var action shared.ApprovalAction
	switch input.Level {
	case 1:
		if po.Status != StatusPendingL1 {
			return PurchaseOrder{}, ErrInvalidState
		}
		next, mode, action = StatusPendingL2, pricing.ModeApproveLevel1, shared.ApprovalLevel1
	case 2:
		if po.Status != StatusPendingL2 {
			return PurchaseOrder{}, ErrInvalidState
		}
		next, mode, action = StatusApproved, pricing.ModeApproveLevel2, shared.ApprovalLevel2
	default:
		return PurchaseOrder{}, fmt.Errorf("%w: approval level %d", ErrValidation, input.Level)
	}

	for i := range po.Lines {
		line := &po.Lines[i]
		qty, ok := input.Qtys[line.ID]
		if !ok {
			if input.Level == 1 {
				qty = line.Qty
			} else {
				qty = line.Approved1Qty
			}
		}
		if qty.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: negative approved quantity", ErrValidation)
		}
		if input.Level == 1 {
			line.Approved1Qty = qty
		} else {
			line.Approved2Qty = qty
		}
	}
	s.compute(&po, mode)
	po.Status = next

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range po.Lines {
			if err := tx.UpdateLine(ctx, line); err != nil {
				return err
			}
		}
		return tx.UpdateHeader(ctx, po)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordApproval(ctx, po.Ref, input.ActorID, action)
	s.recordAudit(ctx, input.ActorID, "PO_APPROVE", po.ID, map[string]any{"level": input.Level})
	return po, nil
}

// Get returns one purchase order with lines.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase orders matching the filters.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset, filters)
}

// compute recalculates every line and the document totals for the mode.
func (s *Service) compute(po *PurchaseOrder, mode pricing.Mode) {
	metrics := make([]pricing.LineMetrics, 0, len(po.Lines))
	for i := range po.Lines {
		m := pricing.Compute(po.Lines[i].pricingLine(), mode)
		po.Lines[i].applyMetrics(m)
		metrics = append(metrics, m)
	}
	po.Totals = pricing.ComputeDocumentTotals(metrics, []pricing.Charge{
		po.TransitInsurance,
		po.HandlingCharge,
		po.GSTReverseCharge,
	})
}

// checkLimits enforces the vendor's item/rate/value caps and reports
// violations in the legacy pipe-delimited message format.
func (s *Service) checkLimits(ctx context.Context, po *PurchaseOrder) error {
	if s.vendors == nil {
		return nil
	}
	vl, err := s.vendors.Limits(ctx, po.VendorID)
	if err != nil {
		return err
	}
	if vl.MaxItemQty == nil && vl.MaxRate == nil && vl.MaxLineValue == nil {
		return nil
	}

	names := map[int64]string{}
	if s.items != nil {
		ids := make([]int64, 0, len(po.Lines))
		for _, line := range po.Lines {
			ids = append(ids, line.ItemID)
		}
		if resolved, err := s.items.Names(ctx, ids); err == nil {
			names = resolved
		}
	}
	nameFor := func(itemID int64) string {
		if name, ok := names[itemID]; ok && name != "" {
			return name
		}
		return fmt.Sprintf("%d", itemID)
	}

	ratio := func(actual, cap decimal.Decimal) string {
		// A zero cap admits no quantity at all, so there is no finite ratio.
		if cap.IsZero() {
			return actual.Round(2).String() + " over zero cap"
		}
		return actual.Div(cap).Round(2).String()
	}

	var itemPairs, ratePairs, valuePairs []limits.Pair
	for _, line := range po.Lines {
		if vl.MaxItemQty != nil && line.Qty.GreaterThan(*vl.MaxItemQty) {
			itemPairs = append(itemPairs, limits.Pair{Name: nameFor(line.ItemID), Ratio: ratio(line.Qty, *vl.MaxItemQty)})
		}
		if vl.MaxRate != nil && line.Rate.GreaterThan(*vl.MaxRate) {
			ratePairs = append(ratePairs, limits.Pair{Name: nameFor(line.ItemID), Ratio: ratio(line.Rate, *vl.MaxRate)})
		}
		if vl.MaxLineValue != nil && line.LineTotal.GreaterThan(*vl.MaxLineValue) {
			valuePairs = append(valuePairs, limits.Pair{Name: nameFor(line.ItemID), Ratio: ratio(line.LineTotal, *vl.MaxLineValue)})
		}
	}

	var violations []limits.Violation
	if len(itemPairs) > 0 {
		violations = append(violations, limits.Violation{Kind: limits.KindItem, Pairs: itemPairs})
	}
	if len(ratePairs) > 0 {
		violations = append(violations, limits.Violation{Kind: limits.KindRate, Pairs: ratePairs})
	}
	if len(valuePairs) > 0 {
		violations = append(violations, limits.Violation{Kind: limits.KindValue, Pairs: valuePairs})
	}
	if len(violations) == 0 {
		return nil
	}
	return &LimitError{Message: limits.Render(violations)}
}

// validateAllocations checks the client-echoed splits against the loaded
// indents and returns the flat list of consumption rows to insert.
func (s *Service) validateAllocations(ctx context.Context, input CreateInput, lines []Line) ([]allocation.Split, error) {
	if len(input.IndentIDs) == 0 {
		if len(input.Allocations) > 0 {
			return nil, fmt.Errorf("%w: allocations without indent ids", ErrValidation)
		}
		return nil, nil
	}
	loaded, err := s.indents.LoadForAllocation(ctx, input.IndentIDs)
	if err != nil {
		return nil, err
	}
	remaining := make(map[int64]decimal.Decimal)
	itemFor := make(map[int64]int64)
	for _, ind := range loaded {
		for _, l := range ind.Lines {
			remaining[l.ID] = l.Remaining()
			itemFor[l.ID] = l.ItemID
		}
	}

	qtyByItem := make(map[int64]decimal.Decimal)
	for _, line := range lines {
		if line.FromIndent {
			qtyByItem[line.ItemID] = qtyByItem[line.ItemID].Add(line.Qty)
		}
	}

	var flat []allocation.Split
	for itemID, splits := range input.Allocations {
		total := decimal.Zero
		for _, split := range splits {
			left, ok := remaining[split.IndentLineID]
			if !ok {
				return nil, fmt.Errorf("%w: unknown indent line %d", ErrAllocation, split.IndentLineID)
			}
			if itemFor[split.IndentLineID] != itemID {
				return nil, fmt.Errorf("%w: indent line %d is not item %d", ErrAllocation, split.IndentLineID, itemID)
			}
			if split.Qty.GreaterThan(left) {
				return nil, fmt.Errorf("%w: indent line %d has %s remaining", ErrAllocation, split.IndentLineID, left)
			}
			remaining[split.IndentLineID] = left.Sub(split.Qty)
			total = total.Add(split.Qty)
			flat = append(flat, split)
		}
		if !total.Equal(qtyByItem[itemID]) {
			return nil, fmt.Errorf("%w: item %d splits sum to %s, line quantity is %s", ErrAllocation, itemID, total, qtyByItem[itemID])
		}
	}
	return flat, nil
}

func (s *Service) recordApproval(ctx context.Context, ref uuid.UUID, actorID int64, action shared.ApprovalAction) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "purchasing", RefID: ref, ActorID: actorID, Action: action})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
