package purchasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechain-erp/sitechain-erp/internal/allocation"
	"github.com/sitechain-erp/sitechain-erp/internal/limits"
	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

type memoryRepo struct {
	orders       map[int64]PurchaseOrder
	consumptions map[int64][]decimal.Decimal
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:       make(map[int64]PurchaseOrder),
		consumptions: make(map[int64][]decimal.Decimal),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	var out []PurchaseOrder
	for _, po := range r.orders {
		if filters.Status != "" && string(po.Status) != filters.Status {
			continue
		}
		if filters.VendorID != 0 && po.VendorID != filters.VendorID {
			continue
		}
		out = append(out, po)
	}
	return out, len(out), nil
}

func (tx *memoryTx) next() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	id := tx.next()
	po.ID = id
	po.Lines = nil
	tx.repo.orders[id] = po
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	id := tx.next()
	line.ID = id
	po := tx.repo.orders[line.POID]
	po.Lines = append(po.Lines, line)
	tx.repo.orders[line.POID] = po
	return id, nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, poID int64) error {
	po := tx.repo.orders[poID]
	po.Lines = nil
	tx.repo.orders[poID] = po
	return nil
}

func (tx *memoryTx) UpdateLine(ctx context.Context, line Line) error {
	po := tx.repo.orders[line.POID]
	for i := range po.Lines {
		if po.Lines[i].ID == line.ID {
			po.Lines[i] = line
		}
	}
	tx.repo.orders[line.POID] = po
	return nil
}

func (tx *memoryTx) UpdateHeader(ctx context.Context, po PurchaseOrder) error {
	stored := tx.repo.orders[po.ID]
	lines := stored.Lines
	po.Lines = lines
	tx.repo.orders[po.ID] = po
	return nil
}

func (tx *memoryTx) InsertIndentConsumption(ctx context.Context, indentLineID, poID int64, qty decimal.Decimal) error {
	tx.repo.consumptions[indentLineID] = append(tx.repo.consumptions[indentLineID], qty)
	return nil
}

type fakeIndents struct {
	indents []allocation.Indent
	err     error
}

func (f *fakeIndents) LoadForAllocation(ctx context.Context, ids []int64) ([]allocation.Indent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.indents, nil
}

type fakeVendors struct {
	limits VendorLimits
}

func (f *fakeVendors) Limits(ctx context.Context, vendorID int64) (VendorLimits, error) {
	return f.limits, nil
}

type fakeItems struct {
	names map[int64]string
}

func (f *fakeItems) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return f.names, nil
}

type recordedApprovals struct {
	logs []shared.ApprovalLog
}

func (r *recordedApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	r.logs = append(r.logs, log)
	return nil
}

type recordedAudit struct {
	logs []shared.AuditLog
}

func (r *recordedAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestService(repo *memoryRepo, indents IndentPort, vendors VendorPort, items ItemPort) (*Service, *recordedApprovals, *recordedAudit) {
	approvals := &recordedApprovals{}
	audit := &recordedAudit{}
	return NewService(repo, indents, vendors, items, approvals, audit), approvals, audit
}

func TestCreateComputesAmountsAndTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, audit := newTestService(repo, &fakeIndents{}, &fakeVendors{}, &fakeItems{})

	po, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID:          11,
			Qty:             dec("1"),
			Rate:            dec("100"),
			DiscountPercent: dec("10"),
			CGSTPercent:     dec("9"),
			SGSTPercent:     dec("9"),
		}},
		HandlingCharge: pricing.Charge{Amount: dec("50")},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPendingL1, po.Status)
	require.Len(t, po.Lines, 1)
	line := po.Lines[0]
	assert.True(t, line.DiscountAmount.Equal(dec("10")), "discount %s", line.DiscountAmount)
	assert.True(t, line.TaxableAmount.Equal(dec("90")))
	assert.True(t, line.CGSTAmount.Equal(dec("8.10")))
	assert.True(t, line.SGSTAmount.Equal(dec("8.10")))
	assert.True(t, line.LineTotal.Equal(dec("106.20")), "total %s", line.LineTotal)
	assert.True(t, po.Totals.GrandTotal.Equal(dec("156.20")), "grand %s", po.Totals.GrandTotal)
	assert.NotEmpty(t, po.Number)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "PO_CREATE", audit.logs[0].Action)
}

func TestCreateRejectsEmptyLines(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, &fakeIndents{}, &fakeVendors{}, &fakeItems{})

	_, err := svc.Create(context.Background(), CreateInput{VendorID: 1, SiteID: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateEnforcesVendorLimits(t *testing.T) {
	repo := newMemoryRepo()
	vendors := &fakeVendors{limits: VendorLimits{
		MaxItemQty: decPtr("10"),
		MaxRate:    decPtr("50"),
	}}
	items := &fakeItems{names: map[int64]string{11: "Cement"}}
	svc, _, _ := newTestService(repo, &fakeIndents{}, vendors, items)

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID: 11,
			Qty:    dec("20"),
			Rate:   dec("100"),
		}},
	})
	require.Error(t, err)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	parsed := limits.Parse(limitErr.Message)
	require.Len(t, parsed.Violations, 2)
	assert.Equal(t, limits.KindItem, parsed.Violations[0].Kind)
	assert.Equal(t, "Cement", parsed.Violations[0].Pairs[0].Name)
	assert.Equal(t, "2", parsed.Violations[0].Pairs[0].Ratio)
	assert.Equal(t, limits.KindRate, parsed.Violations[1].Kind)
	assert.Equal(t, "2", parsed.Violations[1].Pairs[0].Ratio)
}

func TestCreateReportsZeroVendorCap(t *testing.T) {
	repo := newMemoryRepo()
	vendors := &fakeVendors{limits: VendorLimits{
		MaxItemQty: decPtr("0"),
	}}
	items := &fakeItems{names: map[int64]string{11: "Cement"}}
	svc, _, _ := newTestService(repo, &fakeIndents{}, vendors, items)

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID: 11,
			Qty:    dec("20"),
			Rate:   dec("100"),
		}},
	})
	require.Error(t, err)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	parsed := limits.Parse(limitErr.Message)
	require.Len(t, parsed.Violations, 1)
	assert.Equal(t, limits.KindItem, parsed.Violations[0].Kind)
	assert.Equal(t, "Cement", parsed.Violations[0].Pairs[0].Name)
	assert.Equal(t, "20 over zero cap", parsed.Violations[0].Pairs[0].Ratio)
}

func TestCreateFromIndentsRecordsConsumption(t *testing.T) {
	repo := newMemoryRepo()
	indents := &fakeIndents{indents: []allocation.Indent{{
		ID:     1,
		Number: "IND-1",
		Date:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		SiteID: 2,
		Lines: []allocation.IndentLine{{
			ID:           21,
			ItemID:       11,
			Approved2Qty: dec("10"),
			Consumed:     []decimal.Decimal{dec("4")},
		}},
	}}}
	svc, _, _ := newTestService(repo, indents, &fakeVendors{}, &fakeItems{})

	lineID := int64(21)
	po, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID:       11,
			Qty:          dec("6"),
			Rate:         dec("5"),
			IndentLineID: &lineID,
			FromIndent:   true,
		}},
		IndentIDs: []int64{1},
		Allocations: map[int64][]allocation.Split{
			11: {{IndentLineID: 21, Qty: dec("6")}},
		},
	})
	require.NoError(t, err)
	require.Len(t, repo.consumptions[21], 1)
	assert.True(t, repo.consumptions[21][0].Equal(dec("6")))
	assert.Equal(t, StatusPendingL1, po.Status)
}

func TestCreateRejectsOverAllocation(t *testing.T) {
	repo := newMemoryRepo()
	indents := &fakeIndents{indents: []allocation.Indent{{
		ID:   1,
		Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		Lines: []allocation.IndentLine{{
			ID:           21,
			ItemID:       11,
			Approved2Qty: dec("10"),
			Consumed:     []decimal.Decimal{dec("7")},
		}},
	}}}
	svc, _, _ := newTestService(repo, indents, &fakeVendors{}, &fakeItems{})

	lineID := int64(21)
	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines: []LineInput{{
			ItemID:       11,
			Qty:          dec("5"),
			Rate:         dec("5"),
			IndentLineID: &lineID,
			FromIndent:   true,
		}},
		IndentIDs: []int64{1},
		Allocations: map[int64][]allocation.Split{
			11: {{IndentLineID: 21, Qty: dec("5")}},
		},
	})
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestApprovalWorkflow(t *testing.T) {
	repo := newMemoryRepo()
	svc, approvals, _ := newTestService(repo, &fakeIndents{}, &fakeVendors{}, &fakeItems{})

	po, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID: 11,
			Qty:    dec("5"),
			Rate:   dec("10"),
		}},
	})
	require.NoError(t, err)

	// Level 1 trims the quantity; amounts follow the approved column.
	po, err = svc.Approve(context.Background(), ApproveInput{
		POID:    po.ID,
		Level:   1,
		ActorID: 8,
		Qtys:    map[int64]decimal.Decimal{po.Lines[0].ID: dec("4")},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingL2, po.Status)
	assert.True(t, po.Lines[0].Approved1Qty.Equal(dec("4")))
	assert.True(t, po.Lines[0].LineTotal.Equal(dec("40")), "total %s", po.Lines[0].LineTotal)

	// Level 2 defaults to the level-1 quantity when none is given.
	po, err = svc.Approve(context.Background(), ApproveInput{POID: po.ID, Level: 2, ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, po.Status)
	assert.True(t, po.Lines[0].Approved2Qty.Equal(dec("4")))

	require.Len(t, approvals.logs, 2)
	assert.Equal(t, shared.ApprovalLevel1, approvals.logs[0].Action)
	assert.Equal(t, shared.ApprovalLevel2, approvals.logs[1].Action)
}

func TestApproveRejectsWrongState(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, &fakeIndents{}, &fakeVendors{}, &fakeItems{})

	po, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines:    []LineInput{{ItemID: 11, Qty: dec("5"), Rate: dec("10")}},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), ApproveInput{POID: po.ID, Level: 2, ActorID: 8})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateOnlyPendingLevel1(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo, &fakeIndents{}, &fakeVendors{}, &fakeItems{})

	po, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines:    []LineInput{{ItemID: 11, Qty: dec("5"), Rate: dec("10")}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), po.ID, UpdateInput{
		ActorID: 7,
		Lines:   []LineInput{{ItemID: 11, Qty: dec("8"), Rate: dec("10")}},
	})
	require.NoError(t, err)
	assert.True(t, updated.Lines[0].LineTotal.Equal(dec("80")))

	_, err = svc.Approve(context.Background(), ApproveInput{POID: po.ID, Level: 1, ActorID: 8})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), po.ID, UpdateInput{
		ActorID: 7,
		Lines:   []LineInput{{ItemID: 11, Qty: dec("9"), Rate: dec("10")}},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPrepareFromIndentsMergesLines(t *testing.T) {
	repo := newMemoryRepo()
	jan5 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	jan9 := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	indents := &fakeIndents{indents: []allocation.Indent{
		{
			ID: 2, Date: jan9, SiteID: 3,
			Lines: []allocation.IndentLine{{ID: 40, ItemID: 11, Approved2Qty: dec("5")}},
		},
		{
			ID: 1, Date: jan5, SiteID: 3,
			Lines: []allocation.IndentLine{{ID: 30, ItemID: 11, Approved2Qty: dec("10"), Remark: "urgent"}},
		},
	}}
	svc, _, _ := newTestService(repo, indents, &fakeVendors{}, &fakeItems{})

	res, err := svc.PrepareFromIndents(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	assert.True(t, res.Lines[0].Qty.Equal(dec("15")))
	// Both indents contribute, so no single remark survives the merge.
	assert.Empty(t, res.Lines[0].Remark)
	// The earliest line anchors the merged row.
	require.NotNil(t, res.Lines[0].IndentLineID)
	assert.Equal(t, int64(30), *res.Lines[0].IndentLineID)
	assert.Equal(t, int64(3), res.SiteID)

	splits := res.Allocations[11]
	require.Len(t, splits, 2)
	assert.Equal(t, int64(30), splits[0].IndentLineID)
	assert.True(t, splits[0].Qty.Equal(dec("10")))
	assert.Equal(t, int64(40), splits[1].IndentLineID)
}

func TestPrepareFromIndentsPropagatesErrors(t *testing.T) {
	repo := newMemoryRepo()
	indents := &fakeIndents{err: errors.New("indents: not found")}
	svc, _, _ := newTestService(repo, indents, &fakeVendors{}, &fakeItems{})

	_, err := svc.PrepareFromIndents(context.Background(), []int64{99})
	assert.Error(t, err)
}
