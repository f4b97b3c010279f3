package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeWarmer struct {
	siteID  int64
	itemIDs []int64
	calls   int
}

func (f *fakeWarmer) Warm(ctx context.Context, siteID int64, itemIDs []int64) error {
	f.calls++
	f.siteID = siteID
	f.itemIDs = itemIDs
	return nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(ctx context.Context) error {
	f.calls++
	return nil
}

func TestStockWarmupHandlerDecodesPayload(t *testing.T) {
	warmer := &fakeWarmer{}
	handler := NewStockWarmupHandler(warmer, nil)

	task, err := NewStockWarmupTask(StockWarmupPayload{SiteID: 3, ItemIDs: []int64{7, 9}})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, warmer.calls)
	require.Equal(t, int64(3), warmer.siteID)
	require.Equal(t, []int64{7, 9}, warmer.itemIDs)
}

func TestStockWarmupHandlerSkipsBadPayload(t *testing.T) {
	warmer := &fakeWarmer{}
	handler := NewStockWarmupHandler(warmer, nil)

	err := handler(context.Background(), asynq.NewTask(TaskStockWarmup, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, warmer.calls)
}

func TestStockWarmupHandlerRejectsEmptyScope(t *testing.T) {
	warmer := &fakeWarmer{}
	handler := NewStockWarmupHandler(warmer, nil)

	task, err := NewStockWarmupTask(StockWarmupPayload{SiteID: 0})
	require.NoError(t, err)

	require.ErrorIs(t, handler(context.Background(), task), asynq.SkipRetry)
	require.Zero(t, warmer.calls)
}

func TestStockRefreshHandlerInvalidates(t *testing.T) {
	inv := &fakeInvalidator{}
	handler := NewStockRefreshHandler(inv, nil)

	task, err := NewStockRefreshTask("nightly")
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, inv.calls)
}
