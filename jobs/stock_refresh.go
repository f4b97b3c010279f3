package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sitechain-erp/sitechain-erp/internal/jobs"
)

const (
	// TaskStockRefresh invalidates cached closing stock so the next read
	// recomputes from the ledger. Registered on a nightly cron.
	TaskStockRefresh = "stock:refresh"
)

// StockInvalidator drops cached stock snapshots.
type StockInvalidator interface {
	Invalidate(ctx context.Context) error
}

// StockRefreshPayload carries options for the refresh job.
type StockRefreshPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewStockRefreshTask builds a new refresh task.
func NewStockRefreshTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(StockRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewStockRefreshHandler processes TaskStockRefresh tasks.
func NewStockRefreshHandler(inv StockInvalidator, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StockRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return metrics.Track(TaskStockRefresh).End(inv.Invalidate(ctx))
	}
}
