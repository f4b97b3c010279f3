package items

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Names satisfies the order engines' item name lookups.
func (s *Service) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	return s.repo.Names(ctx, ids)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := validate(&item); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) Update(ctx context.Context, id int64, item Item) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(&item); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, item)
}

func validate(item *Item) error {
	item.Code = strings.TrimSpace(item.Code)
	item.Name = strings.TrimSpace(item.Name)
	if item.Code == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if item.Name == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	return nil
}
