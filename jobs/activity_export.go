package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/sitebeam-erp/sitebeam-erp/internal/audit"
)

// ActivityExportJob writes an estimate's activity trail to a CSV file on
// disk, where the document pipeline picks it up.
type ActivityExportJob struct {
	Exporter *audit.Exporter
	Logger   *slog.Logger
}

// NewActivityExportJob wires dependencies for the export handler.
func NewActivityExportJob(exporter *audit.Exporter, logger *slog.Logger) *ActivityExportJob {
	return &ActivityExportJob{Exporter: exporter, Logger: logger}
}

// Handle processes export tasks.
func (j *ActivityExportJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Exporter == nil {
		return errors.New("activity export: handler not configured")
	}
	var payload ActivityExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.EstimateID == 0 || payload.OutputPath == "" {
		return asynq.SkipRetry
	}

	if err := os.MkdirAll(filepath.Dir(payload.OutputPath), 0o755); err != nil {
		return err
	}
	file, err := os.Create(payload.OutputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := j.Exporter.WriteEstimateActivityCSV(ctx, file, payload.EstimateID); err != nil {
		j.logger().Error("activity export failed",
			slog.Int64("estimate_id", payload.EstimateID), slog.Any("error", err))
		return err
	}
	j.logger().Info("activity exported",
		slog.Int64("estimate_id", payload.EstimateID), slog.String("path", payload.OutputPath))
	return nil
}

func (j *ActivityExportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
