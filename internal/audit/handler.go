package audit

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/httpx"
	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
)

// ExportQueue hands large exports off to the background worker.
type ExportQueue interface {
	EnqueueActivityExport(ctx context.Context, estimateID int64, outputPath string) error
}

// Handler exposes activity-trail exports.
type Handler struct {
	logger    *slog.Logger
	exporter  *Exporter
	queue     ExportQueue
	exportDir string
}

func NewHandler(logger *slog.Logger, exporter *Exporter, queue ExportQueue, exportDir string) *Handler {
	return &Handler{logger: logger, exporter: exporter, queue: queue, exportDir: exportDir}
}

func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll(rbac.PermAuditExport))
		r.Get("/estimates/{id}/activity.csv", h.ExportEstimateActivity)
		r.Post("/estimates/{id}/activity-export", h.QueueEstimateActivityExport)
	})
}

func (h *Handler) ExportEstimateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid estimate id")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="estimate-`+strconv.FormatInt(id, 10)+`-activity.csv"`)
	if err := h.exporter.WriteEstimateActivityCSV(r.Context(), w, id); err != nil {
		h.logger.Error("export estimate activity", slog.Any("error", err))
	}
}

// QueueEstimateActivityExport enqueues a background CSV export. The worker
// writes the file into the shared export directory.
func (h *Handler) QueueEstimateActivityExport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid estimate id")
		return
	}
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "export queue not configured")
		return
	}

	name := "estimate-" + strconv.FormatInt(id, 10) + "-activity-" +
		time.Now().UTC().Format("20060102T150405") + ".csv"
	outputPath := filepath.Join(h.exportDir, name)

	if err := h.queue.EnqueueActivityExport(r.Context(), id, outputPath); err != nil {
		h.logger.Error("enqueue activity export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not queue export")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"output_path": outputPath})
}
