package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sitechain-erp/sitechain-erp/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockWarmup pre-computes closing stock for a site ahead of demand.
	TaskStockWarmup = "stock:warmup"
)

// StockWarmer loads closing quantities into the cache.
type StockWarmer interface {
	Warm(ctx context.Context, siteID int64, itemIDs []int64) error
}

// StockWarmupPayload identifies the site and items to pre-compute.
type StockWarmupPayload struct {
	SiteID  int64   `json:"site_id"`
	ItemIDs []int64 `json:"item_ids"`
}

// NewStockWarmupTask constructs an Asynq task.
func NewStockWarmupTask(payload StockWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockWarmup, data, asynq.Queue(QueueDefault)), nil
}

// NewStockWarmupHandler processes TaskStockWarmup tasks.
func NewStockWarmupHandler(warmer StockWarmer, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StockWarmupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track(TaskStockWarmup)
		if payload.SiteID <= 0 || len(payload.ItemIDs) == 0 {
			return tracker.End(asynq.SkipRetry)
		}
		return tracker.End(warmer.Warm(ctx, payload.SiteID, payload.ItemIDs))
	}
}
