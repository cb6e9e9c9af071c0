package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

// ActivityPort lists recorded activity for one entity. Satisfied by
// shared.AuditLogger.
type ActivityPort interface {
	ListForEntity(ctx context.Context, tenantID, entity, entityID string) ([]AuditLogEntry, error)
}

// AuditLogEntry aliases the shared record so callers only import this package.
type AuditLogEntry = shared.AuditLog

// Exporter serialises an entity's activity trail to CSV.
type Exporter struct {
	activity ActivityPort
	tenantID string
}

// NewExporter constructs the exporter.
func NewExporter(activity ActivityPort, tenantID string) *Exporter {
	return &Exporter{activity: activity, tenantID: tenantID}
}

// WriteEstimateActivityCSV emits the full activity trail for one estimate.
// Metadata values under secret-bearing keys are redacted before they leave
// the system.
func (e *Exporter) WriteEstimateActivityCSV(ctx context.Context, w io.Writer, estimateID int64) error {
	logs, err := e.activity.ListForEntity(ctx, e.tenantID, "estimate", strconv.FormatInt(estimateID, 10))
	if err != nil {
		return fmt.Errorf("list estimate activity: %w", err)
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Occurred At", "Actor", "Action", "Details"}); err != nil {
		return err
	}
	for _, log := range logs {
		if err := writer.Write([]string{
			log.At.UTC().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(log.ActorID, 10),
			log.Action,
			formatMeta(log.Meta),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := fmt.Sprintf("%v", meta[key])
		if sensitiveKey(key) {
			value = Redact(value)
		}
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, "; ")
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "token") || strings.Contains(lower, "secret")
}

// Redact keeps the first six characters of a credential so support staff can
// correlate it against issue reports without seeing the full value.
func Redact(value string) string {
	if len(value) <= 6 {
		return value
	}
	return value[:6] + "..."
}
