package sites

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Site, error) {
	if id <= 0 {
		return Site{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, site Site) (Site, error) {
	if err := validate(&site); err != nil {
		return Site{}, err
	}
	return s.repo.Create(ctx, site)
}

func (s *Service) Update(ctx context.Context, id int64, site Site) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(&site); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, site)
}

func validate(site *Site) error {
	site.Code = strings.TrimSpace(site.Code)
	site.Name = strings.TrimSpace(site.Name)
	if site.Code == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if site.Name == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return nil
}
