package workorders

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
	Get(ctx context.Context, id int64) (WorkOrder, error)
	List(ctx context.Context, limit, offset int, filters ListFilters) ([]WorkOrder, int, error)
}

// IndentPort loads fully approved indents for allocation.
type IndentPort interface {
	LoadForAllocation(ctx context.Context, ids []int64) ([]allocation.Indent, error)
}

// VendorPort exposes the contractor's ordering caps.
type VendorPort interface {
	Limits(ctx context.Context, vendorID int64) (VendorLimits, error)
}

// VendorLimits are the per-contractor caps; nil means unlimited.
type VendorLimits struct {
	MaxItemQty   *decimal.Decimal
	MaxRate      *decimal.Decimal
	MaxLineValue *decimal.Decimal
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

// Service orchestrates work order flows.
type Service struct {
	repo      RepositoryPort
	indents   IndentPort
	vendors   VendorPort
	items     ItemPort
	approvals ApprovalPort
	audit     AuditPort
}

// NewService constructs the work order service.
func NewService(repo RepositoryPort, indents IndentPort, vendors VendorPort, items ItemPort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, indents: indents, vendors: vendors, items: items, approvals: approvals, audit: audit}
}

// ListFilters narrow work order listings.
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

// CreateInput describes work order creation, with or without source
// indents.
type CreateInput struct {
	Number         string
	VendorID       int64
	SiteID         int64
	PaymentTermsID int64
	OrderDate      time.Time
	DeliveryDate   *time.Time
	Note           string
	ActorID        int64

	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge

	Lines []LineInput

	IndentIDs   []int64
	Allocations map[int64][]allocation.Split
}

// PrepareResult is the server-assisted merge for the create-from-indent
// form.
type PrepareResult struct {
	Lines        []Line
	Allocations  map[int64][]allocation.Split
	SiteID       int64
	DeliveryDate *time.Time
}

// PrepareFromIndents merges remaining approved capacity across the given
// indents in FIFO order.
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

// Create persists a new work order in PENDING_APPROVAL_1.
func (s *Service) Create(ctx context.Context, input CreateInput) (WorkOrder, error) {
	if len(input.Lines) == 0 {
		return WorkOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	if input.VendorID <= 0 || input.SiteID <= 0 {
		return WorkOrder{}, fmt.Errorf("%w: vendor and site required", ErrValidation)
	}
	if input.Number == "" {
		input.Number = generateNumber("WO")
	}

	wo := WorkOrder{
		Ref:              uuid.New(),
		Number:           input.Number,
		VendorID:         input.VendorID,
		SiteID:           input.SiteID,
		PaymentTermsID:   input.PaymentTermsID,
		OrderDate:        defaultTime(input.OrderDate),
		DeliveryDate:     input.DeliveryDate,
		Status:           StatusPendingL1,
		Note:             input.Note,
		HandlingCharge:   input.HandlingCharge,
		GSTReverseCharge: input.GSTReverseCharge,
	}
	for _, in := range input.Lines {
		if in.ItemID <= 0 {
			return WorkOrder{}, fmt.Errorf("%w: item required on every line", ErrValidation)
		}
		wo.Lines = append(wo.Lines, Line{
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
	s.compute(&wo, pricing.ModeCreate)

	if err := s.checkLimits(ctx, &wo); err != nil {
		return WorkOrder{}, err
	}

	splits, err := s.validateAllocations(ctx, input, wo.Lines)
	if err != nil {
		return WorkOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		woID, err := tx.CreateWO(ctx, wo)
		if err != nil {
			return err
		}
		wo.ID = woID
		for i := range wo.Lines {
			wo.Lines[i].WOID = woID
			lineID, err := tx.InsertLine(ctx, wo.Lines[i])
			if err != nil {
				return err
			}
			wo.Lines[i].ID = lineID
		}
		for _, split := range splits {
			if err := tx.InsertIndentConsumption(ctx, split.IndentLineID, woID, split.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return WorkOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "WO_CREATE", wo.ID, map[string]any{"number": wo.Number, "indents": input.IndentIDs})
	return wo, nil
}

// UpdateInput describes an edit of a not-yet-approved work order.
type UpdateInput struct {
	DeliveryDate     *time.Time
	Note             string
	ActorID          int64
	HandlingCharge   pricing.Charge
	GSTReverseCharge pricing.Charge
	Lines            []LineInput
}

// Update replaces lines and recomputes totals. Only orders still waiting
// for the first approval can be edited.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (WorkOrder, error) {
	wo, err := s.repo.Get(ctx, id)
	if err != nil {
		return WorkOrder{}, err
	}
	if wo.Status != StatusPendingL1 {
		return WorkOrder{}, ErrInvalidState
	}
	if len(input.Lines) == 0 {
		return WorkOrder{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}

	wo.DeliveryDate = input.DeliveryDate
	wo.Note = input.Note
	wo.HandlingCharge = input.HandlingCharge
	wo.GSTReverseCharge = input.GSTReverseCharge
	wo.Lines = wo.Lines[:0]
	for _, in := range input.Lines {
		if in.ItemID <= 0 {
			return WorkOrder{}, fmt.Errorf("%w: item required on every line", ErrValidation)
		}
		wo.Lines = append(wo.Lines, Line{
			WOID:            id,
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
	s.compute(&wo, pricing.ModeEdit)

	if err := s.checkLimits(ctx, &wo); err != nil {
		return WorkOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		for i := range wo.Lines {
			lineID, err := tx.InsertLine(ctx, wo.Lines[i])
			if err != nil {
				return err
			}
			wo.Lines[i].ID = lineID
		}
		return tx.UpdateHeader(ctx, wo)
	})
	if err != nil {
		return WorkOrder{}, err
	}
	s.recordAudit(ctx, input.ActorID, "WO_UPDATE", wo.ID, map[string]any{"number": wo.Number})
	return wo, nil
}

// ApproveInput carries the per-line approved quantities for one level.
type ApproveInput struct {
	WOID    int64
	Level   int
	ActorID int64
	Qtys    map[int64]decimal.Decimal
}

// Approve applies the level-1 or level-2 sign-off.
func (s *Service) Approve(ctx context.Context, input ApproveInput) (WorkOrder, error) {
	wo, err := s.repo.Get(ctx, input.WOID)
	if err != nil {
		return WorkOrder{}, err
	}

	var next Status
	var mode pricing.Mode
	var action shared.ApprovalAction
	switch input.Level {
	case 1:
		if wo.Status != StatusPendingL1 {
			return WorkOrder{}, ErrInvalidState
		}
		next, mode, action = StatusPendingL2, pricing.ModeApproveLevel1, shared.ApprovalLevel1
	case 2:
		if wo.Status != StatusPendingL2 {
			return WorkOrder{}, ErrInvalidState
		}
		next, mode, action = StatusApproved, pricing.ModeApproveLevel2, shared.ApprovalLevel2
	default:
		return WorkOrder{}, fmt.Errorf("%w: approval level %d", ErrValidation, input.Level)
	}

	for i := range wo.Lines {
		line := &wo.Lines[i]
		qty, ok := input.Qtys[line.ID]
		if !ok {
			if input.Level == 1 {
				qty = line.Qty
			} else {
				qty = line.Approved1Qty
			}
		}
		if qty.IsNegative() {
			return WorkOrder{}, fmt.Errorf("%w: negative approved quantity", ErrValidation)
		}
		if input.Level == 1 {
			line.Approved1Qty = qty
		} else {
			line.Approved2Qty = qty
		}
	}
	s.compute(&wo, mode)
	wo.Status = next

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range wo.Lines {
			if err := tx.UpdateLine(ctx, line); err != nil {
				return err
			}
		}
		return tx.UpdateHeader(ctx, wo)
	})
	if err != nil {
		return WorkOrder{}, err
	}
	s.recordApproval(ctx, wo.Ref, input.ActorID, action)
	s.recordAudit(ctx, input.ActorID, "WO_APPROVE", wo.ID, map[string]any{"level": input.Level})
	return wo, nil
}

// Get returns one work order with lines.
func (s *Service) Get(ctx context.Context, id int64) (WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns work orders matching the filters.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]WorkOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, limit, offset, filters)
}

func (s *Service) compute(wo *WorkOrder, mode pricing.Mode) {
	metrics := make([]pricing.LineMetrics, 0, len(wo.Lines))
	for i := range wo.Lines {
		m := pricing.Compute(wo.Lines[i].pricingLine(), mode)
		wo.Lines[i].applyMetrics(m)
		metrics = append(metrics, m)
	}
	wo.Totals = pricing.ComputeDocumentTotals(metrics, []pricing.Charge{
		wo.HandlingCharge,
		wo.GSTReverseCharge,
	})
}

func (s *Service) checkLimits(ctx context.Context, wo *WorkOrder) error {
	if s.vendors == nil {
		return nil
	}
	vl, err := s.vendors.Limits(ctx, wo.VendorID)
	if err != nil {
		return err
	}
	if vl.MaxItemQty == nil && vl.MaxRate == nil && vl.MaxLineValue == nil {
		return nil
	}

	names := map[int64]string{}
	if s.items != nil {
		ids := make([]int64, 0, len(wo.Lines))
		for _, line := range wo.Lines {
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
	for _, line := range wo.Lines {
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
	_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "workorders", RefID: ref, ActorID: actorID, Action: action})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "work_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
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
