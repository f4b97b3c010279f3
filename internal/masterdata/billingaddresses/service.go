package billingaddresses

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]BillingAddress, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (BillingAddress, error) {
	if id <= 0 {
		return BillingAddress{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, addr BillingAddress) (BillingAddress, error) {
	if err := validate(&addr); err != nil {
		return BillingAddress{}, err
	}
	return s.repo.Create(ctx, addr)
}

func (s *Service) Update(ctx context.Context, id int64, addr BillingAddress) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(&addr); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, addr)
}

func validate(addr *BillingAddress) error {
	addr.Label = strings.TrimSpace(addr.Label)
	addr.Address = strings.TrimSpace(addr.Address)
	if addr.Label == "" {
		return fmt.Errorf("%w: label", shared.ErrRequiredField)
	}
	if addr.Address == "" {
		return fmt.Errorf("%w: address", shared.ErrRequiredField)
	}
	return nil
}
