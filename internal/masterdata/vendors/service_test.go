package vendors

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	vendors map[int64]Vendor
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: make(map[int64]Vendor)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Vendor, int, error) {
	var out []Vendor
	for _, v := range r.vendors {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (r *memoryRepo) Create(ctx context.Context, vendor Vendor) (Vendor, error) {
	r.nextID++
	vendor.ID = r.nextID
	r.vendors[vendor.ID] = vendor
	return vendor, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, vendor Vendor) error {
	if _, ok := r.vendors[id]; !ok {
		return shared.ErrNotFound
	}
	vendor.ID = id
	r.vendors[id] = vendor
	return nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), Vendor{Name: "Acme"})
	assert.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Vendor{Code: "V-1"})
	assert.ErrorIs(t, err, shared.ErrRequiredField)

	created, err := svc.Create(context.Background(), Vendor{Code: " V-1 ", Name: " Acme "})
	require.NoError(t, err)
	assert.Equal(t, "V-1", created.Code)
	assert.Equal(t, "Acme", created.Name)
}

func TestCreateRejectsNegativeCaps(t *testing.T) {
	svc := NewService(newMemoryRepo())
	neg := decimal.NewFromInt(-1)

	_, err := svc.Create(context.Background(), Vendor{Code: "V-1", Name: "Acme", MaxRate: &neg})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestLimitsAdaptVendorCaps(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	qty := decimal.NewFromInt(100)
	created, err := svc.Create(context.Background(), Vendor{Code: "V-1", Name: "Acme", MaxItemQty: &qty})
	require.NoError(t, err)

	limits, err := svc.Limits(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, limits.MaxItemQty)
	assert.True(t, limits.MaxItemQty.Equal(qty))
	assert.Nil(t, limits.MaxRate)

	woLimits, err := svc.ForWorkOrders().Limits(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, woLimits.MaxItemQty)
	assert.True(t, woLimits.MaxItemQty.Equal(qty))
}
