package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBuyCostWarmup repopulates the buy cost cache from the database.
	TaskBuyCostWarmup = "buycost:warmup"
	// TaskActivityExport writes an estimate's activity trail to a CSV file.
	TaskActivityExport = "audit:activity_export"
)

// BuyCostWarmupPayload is empty today; the payload exists so future options
// (per-category warmup) stay wire compatible.
type BuyCostWarmupPayload struct{}

// NewBuyCostWarmupTask constructs a warmup task.
func NewBuyCostWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(BuyCostWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBuyCostWarmup, data), nil
}

// ActivityExportPayload identifies the estimate and where to write the CSV.
type ActivityExportPayload struct {
	EstimateID int64  `json:"estimate_id"`
	OutputPath string `json:"output_path"`
}

// NewActivityExportTask constructs an export task.
func NewActivityExportTask(payload ActivityExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityExport, data), nil
}
