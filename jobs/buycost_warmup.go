package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sitebeam-erp/sitebeam-erp/internal/buycost"
)

// BuyCostWarmupJob repopulates the Redis buy cost cache from PostgreSQL.
type BuyCostWarmupJob struct {
	BuyCosts *buycost.Service
	Logger   *slog.Logger
}

// NewBuyCostWarmupJob wires dependencies for the warmup handler.
func NewBuyCostWarmupJob(buyCosts *buycost.Service, logger *slog.Logger) *BuyCostWarmupJob {
	return &BuyCostWarmupJob{BuyCosts: buyCosts, Logger: logger}
}

// Handle processes warmup tasks.
func (j *BuyCostWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.BuyCosts == nil {
		return errors.New("buycost warmup: handler not configured")
	}
	var payload BuyCostWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	warmed, err := j.BuyCosts.WarmCache(ctx)
	if err != nil {
		j.logger().Error("buy cost warmup failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("buy cost cache warmed", slog.Int("entries", warmed))
	return nil
}

func (j *BuyCostWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
