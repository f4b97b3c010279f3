package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/shared"
)

type memoryRepo struct {
	sites  map[int64]Site
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sites: make(map[int64]Site)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	var out []Site
	for _, s := range r.sites {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Site, error) {
	s, ok := r.sites[id]
	if !ok {
		return Site{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) Create(ctx context.Context, site Site) (Site, error) {
	r.nextID++
	site.ID = r.nextID
	r.sites[site.ID] = site
	return site, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, site Site) error {
	if _, ok := r.sites[id]; !ok {
		return shared.ErrNotFound
	}
	site.ID = id
	r.sites[id] = site
	return nil
}

func TestCreateTrimsAndRequiresCodeAndName(t *testing.T) {
	svc := NewService(newMemoryRepo())

	created, err := svc.Create(context.Background(), Site{Code: "  SITE-A ", Name: " Riverside Towers "})
	require.NoError(t, err)
	assert.Equal(t, "SITE-A", created.Code)
	assert.Equal(t, "Riverside Towers", created.Name)

	_, err = svc.Create(context.Background(), Site{Name: "No Code"})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(context.Background(), Site{Code: "X"})
	require.ErrorIs(t, err, shared.ErrRequiredField)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestUpdateRequiresExistingSite(t *testing.T) {
	svc := NewService(newMemoryRepo())

	err := svc.Update(context.Background(), 99, Site{Code: "A", Name: "B"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
