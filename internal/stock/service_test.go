package stock

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mu         sync.Mutex
	quantities map[int64]decimal.Decimal
	calls      int
}

func (m *mockRepo) ClosingQuantities(ctx context.Context, siteID int64, itemIDs []int64) (map[int64]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make(map[int64]decimal.Decimal)
	for _, id := range itemIDs {
		if qty, ok := m.quantities[id]; ok {
			out[id] = qty
		}
	}
	return out, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClosingReturnsQuantities(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockRepo{quantities: map[int64]decimal.Decimal{
		11: dec("42.5"),
		12: dec("0"),
	}}
	svc := NewService(repo, cache)

	got, err := svc.Closing(context.Background(), 1, []int64{11, 12, 13})
	require.NoError(t, err)
	assert.True(t, got[11].Equal(dec("42.5")))
	assert.True(t, got[12].IsZero())
	// Unknown items resolve to zero rather than being omitted.
	assert.True(t, got[13].IsZero())
}

func TestClosingUsesCacheOnSecondLookup(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockRepo{quantities: map[int64]decimal.Decimal{11: dec("7")}}
	svc := NewService(repo, cache)

	_, err := svc.Closing(context.Background(), 1, []int64{11})
	require.NoError(t, err)
	_, err = svc.Closing(context.Background(), 1, []int64{11})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestInvalidateBumpsVersion(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockRepo{quantities: map[int64]decimal.Decimal{11: dec("7")}}
	svc := NewService(repo, cache)

	_, err := svc.Closing(context.Background(), 1, []int64{11})
	require.NoError(t, err)

	repo.mu.Lock()
	repo.quantities[11] = dec("9")
	repo.mu.Unlock()

	require.NoError(t, svc.Invalidate(context.Background()))

	got, err := svc.Closing(context.Background(), 1, []int64{11})
	require.NoError(t, err)
	assert.True(t, got[11].Equal(dec("9")), "got %s", got[11])
	assert.Equal(t, 2, repo.calls)
}

func TestClosingKeyIgnoresItemOrder(t *testing.T) {
	cache, _ := newTestCache(t)
	repo := &mockRepo{quantities: map[int64]decimal.Decimal{11: dec("1"), 12: dec("2")}}
	svc := NewService(repo, cache)

	_, err := svc.Closing(context.Background(), 1, []int64{12, 11})
	require.NoError(t, err)
	_, err = svc.Closing(context.Background(), 1, []int64{11, 12})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
}

func TestClosingRejectsInvalidSite(t *testing.T) {
	cache, _ := newTestCache(t)
	svc := NewService(&mockRepo{}, cache)

	_, err := svc.Closing(context.Background(), 0, []int64{11})
	assert.Error(t, err)
}
