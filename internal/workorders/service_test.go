package workorders

import (
	"context"
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
	orders       map[int64]WorkOrder
	consumptions map[int64][]decimal.Decimal
	nextID       int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:       make(map[int64]WorkOrder),
		consumptions: make(map[int64][]decimal.Decimal),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (WorkOrder, error) {
	wo, ok := r.orders[id]
	if !ok {
		return WorkOrder{}, ErrNotFound
	}
	return wo, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int, filters ListFilters) ([]WorkOrder, int, error) {
	var out []WorkOrder
	for _, wo := range r.orders {
		out = append(out, wo)
	}
	return out, len(out), nil
}

func (tx *memoryTx) next() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) CreateWO(ctx context.Context, wo WorkOrder) (int64, error) {
	id := tx.next()
	wo.ID = id
	wo.Lines = nil
	tx.repo.orders[id] = wo
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	id := tx.next()
	line.ID = id
	wo := tx.repo.orders[line.WOID]
	wo.Lines = append(wo.Lines, line)
	tx.repo.orders[line.WOID] = wo
	return id, nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, woID int64) error {
	wo := tx.repo.orders[woID]
	wo.Lines = nil
	tx.repo.orders[woID] = wo
	return nil
}

func (tx *memoryTx) UpdateLine(ctx context.Context, line Line) error {
	wo := tx.repo.orders[line.WOID]
	for i := range wo.Lines {
		if wo.Lines[i].ID == line.ID {
			wo.Lines[i] = line
		}
	}
	tx.repo.orders[line.WOID] = wo
	return nil
}

func (tx *memoryTx) UpdateHeader(ctx context.Context, wo WorkOrder) error {
	stored := tx.repo.orders[wo.ID]
	wo.Lines = stored.Lines
	tx.repo.orders[wo.ID] = wo
	return nil
}

func (tx *memoryTx) InsertIndentConsumption(ctx context.Context, indentLineID, woID int64, qty decimal.Decimal) error {
	tx.repo.consumptions[indentLineID] = append(tx.repo.consumptions[indentLineID], qty)
	return nil
}

type fakeIndents struct {
	indents []allocation.Indent
}

func (f *fakeIndents) LoadForAllocation(ctx context.Context, ids []int64) ([]allocation.Indent, error) {
	return f.indents, nil
}

type fakeVendors struct {
	limits VendorLimits
}

func (f *fakeVendors) Limits(ctx context.Context, vendorID int64) (VendorLimits, error) {
	return f.limits, nil
}

type fakeItems struct{}

func (fakeItems) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	return map[int64]string{}, nil
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

func newTestService(repo *memoryRepo, indents IndentPort, vendors VendorPort) (*Service, *recordedApprovals) {
	approvals := &recordedApprovals{}
	return NewService(repo, indents, vendors, fakeItems{}, approvals, &recordedAudit{}), approvals
}

func TestCreateComputesTotalsWithHandlingCharge(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, &fakeIndents{}, &fakeVendors{})

	wo, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		ActorID:  7,
		Lines: []LineInput{{
			ItemID:      11,
			Qty:         dec("2"),
			Rate:        dec("150"),
			IGSTPercent: dec("18"),
		}},
		HandlingCharge: pricing.Charge{Amount: dec("25")},
		// A fixed label contributes nothing to the grand total.
		GSTReverseCharge: pricing.Charge{Status: "Not Applicable", Amount: dec("999")},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPendingL1, wo.Status)
	line := wo.Lines[0]
	assert.True(t, line.IGSTAmount.Equal(dec("54")), "igst %s", line.IGSTAmount)
	assert.True(t, line.LineTotal.Equal(dec("354")))
	assert.True(t, wo.Totals.ChargeAmount.Equal(dec("25")), "charges %s", wo.Totals.ChargeAmount)
	assert.True(t, wo.Totals.GrandTotal.Equal(dec("379")), "grand %s", wo.Totals.GrandTotal)
}

func TestCreateEnforcesContractorValueLimit(t *testing.T) {
	repo := newMemoryRepo()
	vendors := &fakeVendors{limits: VendorLimits{MaxLineValue: decPtr("100")}}
	svc, _ := newTestService(repo, &fakeIndents{}, vendors)

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines:    []LineInput{{ItemID: 11, Qty: dec("4"), Rate: dec("50")}},
	})
	require.Error(t, err)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	parsed := limits.Parse(limitErr.Message)
	require.Len(t, parsed.Violations, 1)
	assert.Equal(t, limits.KindValue, parsed.Violations[0].Kind)
	assert.Equal(t, "2", parsed.Violations[0].Pairs[0].Ratio)
}

func TestCreateReportsZeroContractorCap(t *testing.T) {
	repo := newMemoryRepo()
	vendors := &fakeVendors{limits: VendorLimits{MaxRate: decPtr("0")}}
	svc, _ := newTestService(repo, &fakeIndents{}, vendors)

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines:    []LineInput{{ItemID: 11, Qty: dec("4"), Rate: dec("50")}},
	})
	require.Error(t, err)

	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	parsed := limits.Parse(limitErr.Message)
	require.Len(t, parsed.Violations, 1)
	assert.Equal(t, limits.KindRate, parsed.Violations[0].Kind)
	assert.Equal(t, "50 over zero cap", parsed.Violations[0].Pairs[0].Ratio)
}

func TestApprovalFlowRecordsActions(t *testing.T) {
	repo := newMemoryRepo()
	svc, approvals := newTestService(repo, &fakeIndents{}, &fakeVendors{})

	wo, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   2,
		Lines:    []LineInput{{ItemID: 11, Qty: dec("3"), Rate: dec("20")}},
	})
	require.NoError(t, err)

	wo, err = svc.Approve(context.Background(), ApproveInput{WOID: wo.ID, Level: 1, ActorID: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingL2, wo.Status)
	assert.True(t, wo.Lines[0].Approved1Qty.Equal(dec("3")))

	wo, err = svc.Approve(context.Background(), ApproveInput{
		WOID:    wo.ID,
		Level:   2,
		ActorID: 6,
		Qtys:    map[int64]decimal.Decimal{wo.Lines[0].ID: dec("2")},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, wo.Status)
	assert.True(t, wo.Lines[0].LineTotal.Equal(dec("40")), "total %s", wo.Lines[0].LineTotal)

	require.Len(t, approvals.logs, 2)
	assert.Equal(t, "workorders", approvals.logs[0].Module)
}

func TestCreateFromIndentsConsumesCapacity(t *testing.T) {
	repo := newMemoryRepo()
	indents := &fakeIndents{indents: []allocation.Indent{{
		ID:     1,
		Date:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		SiteID: 4,
		Lines: []allocation.IndentLine{{
			ID:           50,
			ItemID:       11,
			Approved2Qty: dec("8"),
		}},
	}}}
	svc, _ := newTestService(repo, indents, &fakeVendors{})

	lineID := int64(50)
	_, err := svc.Create(context.Background(), CreateInput{
		VendorID: 1,
		SiteID:   4,
		Lines: []LineInput{{
			ItemID:       11,
			Qty:          dec("8"),
			Rate:         dec("10"),
			IndentLineID: &lineID,
			FromIndent:   true,
		}},
		IndentIDs:   []int64{1},
		Allocations: map[int64][]allocation.Split{11: {{IndentLineID: 50, Qty: dec("8")}}},
	})
	require.NoError(t, err)
	require.Len(t, repo.consumptions[50], 1)
	assert.True(t, repo.consumptions[50][0].Equal(dec("8")))
}
