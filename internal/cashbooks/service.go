package cashbooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitechain-erp/sitechain-erp/internal/pricing"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, book Cashbook) (Cashbook, error)
	Get(ctx context.Context, id int64) (Cashbook, error)
	List(ctx context.Context, siteID int64) ([]Cashbook, error)
	Entries(ctx context.Context, cashbookID int64, limit, offset int) ([]Entry, int, error)
	AppendEntry(ctx context.Context, entry Entry, balance decimal.Decimal) (Entry, error)
}

// IdempotencyPort guards entry submissions against duplicates.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service manages cashbooks and their entries.
type Service struct {
	repo        RepositoryPort
	idempotency IdempotencyPort
}

// NewService constructs the cashbook service. The idempotency store may be
// nil, in which case duplicate submission protection is disabled.
func NewService(repo RepositoryPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, idempotency: idem}
}

// Create opens a new cashbook for a site.
func (s *Service) Create(ctx context.Context, siteID int64, name string) (Cashbook, error) {
	name = strings.TrimSpace(name)
	if siteID <= 0 {
		return Cashbook{}, fmt.Errorf("%w: site required", ErrValidation)
	}
	if name == "" {
		return Cashbook{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	return s.repo.Create(ctx, Cashbook{SiteID: siteID, Name: name})
}

// Get returns one cashbook.
func (s *Service) Get(ctx context.Context, id int64) (Cashbook, error) {
	return s.repo.Get(ctx, id)
}

// List returns the cashbooks for a site, or all when siteID is zero.
func (s *Service) List(ctx context.Context, siteID int64) ([]Cashbook, error) {
	return s.repo.List(ctx, siteID)
}

// Entries returns a page of movements, newest first.
func (s *Service) Entries(ctx context.Context, cashbookID int64, limit, offset int) ([]Entry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.Entries(ctx, cashbookID, limit, offset)
}

// RecordInput describes one movement.
type RecordInput struct {
	CashbookID     int64
	Kind           EntryKind
	Amount         decimal.Decimal
	Narration      string
	EntryDate      time.Time
	IdempotencyKey string
}

// Record appends a movement and advances the running balance. The balance
// is rounded after every step, matching the document total discipline, so
// replaying the entries always reproduces the stored balance exactly.
func (s *Service) Record(ctx context.Context, input RecordInput) (Entry, error) {
	if input.Kind != KindDebit && input.Kind != KindCredit {
		return Entry{}, fmt.Errorf("%w: kind must be DEBIT or CREDIT", ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	book, err := s.repo.Get(ctx, input.CashbookID)
	if err != nil {
		return Entry{}, err
	}

	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "cashbooks.entry"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Entry{}, fmt.Errorf("%w: entry already recorded", ErrDuplicate)
			}
			return Entry{}, err
		}
	}

	var running pricing.RunningTotal
	running.Add(book.Balance)
	if input.Kind == KindDebit {
		running.Add(input.Amount)
	} else {
		running.Add(input.Amount.Neg())
	}

	entry := Entry{
		CashbookID: input.CashbookID,
		Kind:       input.Kind,
		Amount:     input.Amount,
		Balance:    running.Value(),
		Narration:  strings.TrimSpace(input.Narration),
		EntryDate:  defaultTime(input.EntryDate),
	}
	saved, err := s.repo.AppendEntry(ctx, entry, running.Value())
	if err != nil {
		if s.idempotency != nil && input.IdempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Entry{}, err
	}
	return saved, nil
}

func defaultTime(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now()
	}
	return value
}
