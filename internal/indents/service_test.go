package indents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

type memoryRepo struct {
	indents map[int64]Indent
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{indents: make(map[int64]Indent)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Indent, error) {
	ind, ok := r.indents[id]
	if !ok {
		return Indent{}, ErrNotFound
	}
	return ind, nil
}

func (r *memoryRepo) ListByIDs(ctx context.Context, ids []int64) ([]Indent, error) {
	var out []Indent
	for _, id := range ids {
		if ind, ok := r.indents[id]; ok {
			out = append(out, ind)
		}
	}
	return out, nil
}

func (tx *memoryTx) next() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryTx) CreateIndent(ctx context.Context, ind Indent) (int64, error) {
	id := tx.next()
	ind.ID = id
	tx.repo.indents[id] = ind
	return id, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line Line) (int64, error) {
	line.ID = tx.next()
	ind := tx.repo.indents[line.IndentID]
	ind.Lines = append(ind.Lines, line)
	tx.repo.indents[line.IndentID] = ind
	return line.ID, nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	ind, ok := tx.repo.indents[id]
	if !ok {
		return ErrNotFound
	}
	ind.Status = status
	tx.repo.indents[id] = ind
	return nil
}

func (tx *memoryTx) SetApprovedQty(ctx context.Context, lineID int64, level int, qty decimal.Decimal) error {
	for id, ind := range tx.repo.indents {
		for i, line := range ind.Lines {
			if line.ID == lineID {
				if level == 2 {
					ind.Lines[i].Approved2Qty = qty
				} else {
					ind.Lines[i].Approved1Qty = qty
				}
				tx.repo.indents[id] = ind
				return nil
			}
		}
	}
	return ErrNotFound
}

type recordedApprovals struct {
	logs []shared.ApprovalLog
}

func (a *recordedApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateRequiresLines(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), CreateInput{SiteID: 1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApprovalWorkflow(t *testing.T) {
	repo := newMemoryRepo()
	approvals := &recordedApprovals{}
	svc := NewService(repo, approvals)
	ctx := context.Background()

	ind, err := svc.Create(ctx, CreateInput{
		SiteID: 3,
		Date:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{ItemID: 10, Qty: dec("12"), Remark: "footings"},
		},
	})
	require.NoError(t, err)

	// Cannot approve before submit.
	err = svc.Approve(ctx, ApproveInput{IndentID: ind.ID, Level: 1, ActorID: 7})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, svc.Submit(ctx, ind.ID, 7))

	lineID := ind.Lines[0].ID
	err = svc.Approve(ctx, ApproveInput{
		IndentID: ind.ID, Level: 1, ActorID: 8,
		Qtys: map[int64]decimal.Decimal{lineID: dec("10")},
	})
	require.NoError(t, err)

	// Level 2 defaults to the level-1 quantity when not overridden.
	err = svc.Approve(ctx, ApproveInput{IndentID: ind.ID, Level: 2, ActorID: 9})
	require.NoError(t, err)

	got, err := svc.Get(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved2, got.Status)
	assert.True(t, got.Lines[0].Approved1Qty.Equal(dec("10")))
	assert.True(t, got.Lines[0].Approved2Qty.Equal(dec("10")))

	require.Len(t, approvals.logs, 3)
	assert.Equal(t, shared.ApprovalSubmit, approvals.logs[0].Action)
	assert.Equal(t, shared.ApprovalLevel1, approvals.logs[1].Action)
	assert.Equal(t, shared.ApprovalLevel2, approvals.logs[2].Action)
}

func TestLoadForAllocationRejectsUnapproved(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	ind, err := svc.Create(ctx, CreateInput{SiteID: 1, Lines: []LineInput{{ItemID: 1, Qty: dec("5")}}})
	require.NoError(t, err)

	_, err = svc.LoadForAllocation(ctx, []int64{ind.ID})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.LoadForAllocation(ctx, []int64{ind.ID, 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadForAllocationMapsConsumptions(t *testing.T) {
	repo := newMemoryRepo()
	repo.indents[1] = Indent{
		ID:     1,
		Number: "IND-1",
		SiteID: 4,
		Status: StatusApproved2,
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Lines: []Line{{
			ID: 11, IndentID: 1, ItemID: 5,
			Approved2Qty: dec("10"),
			Consumptions: []Consumption{{OrderType: "PO", OrderID: 100, OrderedQty: dec("7")}},
			Remark:       "north wing",
		}},
	}
	svc := NewService(repo, nil)

	out, err := svc.LoadForAllocation(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out[0].Lines, 1)
	line := out[0].Lines[0]
	assert.True(t, line.Remaining().Equal(dec("3")))
	assert.Equal(t, "north wing", line.Remark)
}
