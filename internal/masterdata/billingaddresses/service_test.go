package billingaddresses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	addrs  map[int64]BillingAddress
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{addrs: make(map[int64]BillingAddress)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]BillingAddress, int, error) {
	var out []BillingAddress
	for _, a := range r.addrs {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (BillingAddress, error) {
	a, ok := r.addrs[id]
	if !ok {
		return BillingAddress{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryRepo) Create(ctx context.Context, addr BillingAddress) (BillingAddress, error) {
	r.nextID++
	addr.ID = r.nextID
	r.addrs[addr.ID] = addr
	return addr, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, addr BillingAddress) error {
	if _, ok := r.addrs[id]; !ok {
		return shared.ErrNotFound
	}
	addr.ID = id
	r.addrs[id] = addr
	return nil
}

func TestCreateTrimsAndRequiresLabelAndAddress(t *testing.T) {
	svc := NewService(newMemoryRepo())

	created, err := svc.Create(context.Background(), BillingAddress{Label: "  Head Office ", Address: " 12 MG Road "})
	require.NoError(t, err)
	assert.Equal(t, "Head Office", created.Label)
	assert.Equal(t, "12 MG Road", created.Address)

	_, err = svc.Create(context.Background(), BillingAddress{Address: "No Label"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), BillingAddress{Label: "X"})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Get(context.Background(), -1)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestUpdateRequiresExistingAddress(t *testing.T) {
	svc := NewService(newMemoryRepo())

	err := svc.Update(context.Background(), 42, BillingAddress{Label: "A", Address: "B"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
