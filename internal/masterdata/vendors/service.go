package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
	"github.com/sitechain-erp/sitechain-erp/internal/purchasing"
	"github.com/sitechain-erp/sitechain-erp/internal/workorders"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	if err := validate(&vendor); err != nil {
		return Vendor{}, err
	}
	return s.repo.Create(ctx, vendor)
}

func (s *Service) Update(ctx context.Context, id int64, vendor Vendor) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := validate(&vendor); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, vendor)
}

// Limits adapts the vendor master to the purchasing limit checker.
func (s *Service) Limits(ctx context.Context, vendorID int64) (purchasing.VendorLimits, error) {
	v, err := s.repo.Get(ctx, vendorID)
	if err != nil {
		return purchasing.VendorLimits{}, err
	}
	return purchasing.VendorLimits{MaxItemQty: v.MaxItemQty, MaxRate: v.MaxRate, MaxLineValue: v.MaxLineValue}, nil
}

// WorkOrderLimits adapts the vendor master to the work order limit
// checker, which carries its own port type.
type WorkOrderLimits struct {
	svc *Service
}

func (s *Service) ForWorkOrders() WorkOrderLimits {
	return WorkOrderLimits{svc: s}
}

func (a WorkOrderLimits) Limits(ctx context.Context, vendorID int64) (workorders.VendorLimits, error) {
	v, err := a.svc.repo.Get(ctx, vendorID)
	if err != nil {
		return workorders.VendorLimits{}, err
	}
	return workorders.VendorLimits{MaxItemQty: v.MaxItemQty, MaxRate: v.MaxRate, MaxLineValue: v.MaxLineValue}, nil
}

func validate(vendor *Vendor) error {
	vendor.Code = strings.TrimSpace(vendor.Code)
	vendor.Name = strings.TrimSpace(vendor.Name)
	if vendor.Code == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if vendor.Name == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if vendor.MaxItemQty != nil && vendor.MaxItemQty.IsNegative() {
		return fmt.Errorf("%w: max_item_qty must not be negative", shared.ErrValidation)
	}
	if vendor.MaxRate != nil && vendor.MaxRate.IsNegative() {
		return fmt.Errorf("%w: max_rate must not be negative", shared.ErrValidation)
	}
	if vendor.MaxLineValue != nil && vendor.MaxLineValue.IsNegative() {
		return fmt.Errorf("%w: max_line_value must not be negative", shared.ErrValidation)
	}
	return nil
}
