package indents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/allocation"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Indent, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Indent, error)
}

// ApprovalPort records approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service orchestrates indent flows.
type Service struct {
	repo      RepositoryPort
	approvals ApprovalPort
}

// NewService constructs the indent service.
func NewService(repo RepositoryPort, approvals ApprovalPort) *Service {
	return &Service{repo: repo, approvals: approvals}
}

// CreateInput describes indent creation.
type CreateInput struct {
	Number       string
	SiteID       int64
	Date         time.Time
	DeliveryDate *time.Time
	Note         string
	Lines        []LineInput
}

// LineInput describes one requested item.
type LineInput struct {
	ItemID int64
	Qty    decimal.Decimal
	Remark string
}

// Create persists the indent header and lines in DRAFT.
func (s *Service) Create(ctx context.Context, input CreateInput) (Indent, error) {
	if len(input.Lines) == 0 {
		return Indent{}, fmt.Errorf("%w: minimal 1 line", ErrValidation)
	}
	if input.Number == "" {
		input.Number = generateNumber("IND")
	}
	ind := Indent{
		Ref:          uuid.New(),
		Number:       input.Number,
		SiteID:       input.SiteID,
		Date:         defaultTime(input.Date),
		DeliveryDate: input.DeliveryDate,
		Status:       StatusDraft,
		Note:         input.Note,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateIndent(ctx, ind)
		if err != nil {
			return err
		}
		ind.ID = id
		for _, line := range input.Lines {
			if line.ItemID <= 0 || !line.Qty.IsPositive() {
				return ErrValidation
			}
			lineID, err := tx.InsertLine(ctx, Line{IndentID: id, ItemID: line.ItemID, Qty: line.Qty, Remark: line.Remark})
			if err != nil {
				return err
			}
			ind.Lines = append(ind.Lines, Line{ID: lineID, IndentID: id, ItemID: line.ItemID, Qty: line.Qty, Remark: line.Remark})
		}
		return nil
	})
	if err != nil {
		return Indent{}, err
	}
	return ind, nil
}

// Submit transitions DRAFT to SUBMITTED.
func (s *Service) Submit(ctx context.Context, id int64, actorID int64) error {
	ind, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if ind.Status != StatusDraft {
		return ErrInvalidState
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, StatusSubmitted)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, ind.Ref, actorID, shared.ApprovalSubmit)
	return nil
}

// ApproveInput carries the per-line approved quantities for one level.
type ApproveInput struct {
	IndentID int64
	Level    int
	ActorID  int64
	// Qtys maps indent line id to approved quantity; omitted lines keep
	// their requested quantity.
	Qtys map[int64]decimal.Decimal
}

// Approve applies a level-1 or level-2 approval. Each level may reduce
// quantities below the previous stage.
func (s *Service) Approve(ctx context.Context, input ApproveInput) error {
	ind, err := s.repo.Get(ctx, input.IndentID)
	if err != nil {
		return err
	}
	var next Status
	switch input.Level {
	case 1:
		if ind.Status != StatusSubmitted {
			return ErrInvalidState
		}
		next = StatusApproved1
	case 2:
		if ind.Status != StatusApproved1 {
			return ErrInvalidState
		}
		next = StatusApproved2
	default:
		return fmt.Errorf("%w: approval level %d", ErrValidation, input.Level)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range ind.Lines {
			qty, ok := input.Qtys[line.ID]
			if !ok {
				if input.Level == 1 {
					qty = line.Qty
				} else {
					qty = line.Approved1Qty
				}
			}
			if qty.IsNegative() {
				return ErrValidation
			}
			if err := tx.SetApprovedQty(ctx, line.ID, input.Level, qty); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, input.IndentID, next)
	})
	if err != nil {
		return err
	}
	action := shared.ApprovalLevel1
	if input.Level == 2 {
		action = shared.ApprovalLevel2
	}
	s.recordApproval(ctx, ind.Ref, input.ActorID, action)
	return nil
}

// Get returns one indent with lines and consumption history.
func (s *Service) Get(ctx context.Context, id int64) (Indent, error) {
	return s.repo.Get(ctx, id)
}

// ListByIDs bulk-loads indents for the order forms.
func (s *Service) ListByIDs(ctx context.Context, ids []int64) ([]Indent, error) {
	return s.repo.ListByIDs(ctx, ids)
}

// LoadForAllocation converts fully approved indents into the allocator's
// input shape. Indents that are not yet level-2 approved are rejected so
// the allocator only ever sees final caps.
func (s *Service) LoadForAllocation(ctx context.Context, ids []int64) ([]allocation.Indent, error) {
	loaded, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(loaded) != len(ids) {
		return nil, ErrNotFound
	}
	result := make([]allocation.Indent, 0, len(loaded))
	for _, ind := range loaded {
		if ind.Status != StatusApproved2 && ind.Status != StatusClosed {
			return nil, fmt.Errorf("%w: indent %s is not fully approved", ErrInvalidState, ind.Number)
		}
		out := allocation.Indent{
			ID:           ind.ID,
			Number:       ind.Number,
			Date:         ind.Date,
			SiteID:       ind.SiteID,
			DeliveryDate: ind.DeliveryDate,
		}
		for _, line := range ind.Lines {
			consumed := make([]decimal.Decimal, 0, len(line.Consumptions))
			for _, c := range line.Consumptions {
				consumed = append(consumed, c.OrderedQty)
			}
			out.Lines = append(out.Lines, allocation.IndentLine{
				ID:           line.ID,
				ItemID:       line.ItemID,
				Approved2Qty: line.Approved2Qty,
				Consumed:     consumed,
				Remark:       line.Remark,
			})
		}
		result = append(result, out)
	}
	return result, nil
}

func (s *Service) recordApproval(ctx context.Context, ref uuid.UUID, actorID int64, action shared.ApprovalAction) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "indents", RefID: ref, ActorID: actorID, Action: action})
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
