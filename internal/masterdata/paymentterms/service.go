package paymentterms

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Term, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Term, error) {
	if id <= 0 {
		return Term{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, term Term) (Term, error) {
	if err := validate(&term); err != nil {
		return Term{}, err
	}
	return s.repo.Create(ctx, term)
}

func (s *Service) Update(ctx context.Context, id int64, term Term) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(&term); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, term)
}

func validate(term *Term) error {
	term.Code = strings.TrimSpace(term.Code)
	if term.Code == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if term.DueDays < 0 {
		return fmt.Errorf("%w: due_days must not be negative", shared.ErrValidation)
	}
	return nil
}
