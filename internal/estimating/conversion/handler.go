package conversion

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/estimates"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/workflow"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/httpx"
	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
	"github.com/sitebeam-erp/sitebeam-erp/internal/shared"
)

// Handler exposes the conversion endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll(rbac.PermEstimateConvert))
		r.Post("/estimates/{id}/convert", h.Convert)
	})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	estimateID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid estimate id")
		return
	}
	var req struct {
		QuoteVersionID uuid.UUID `json:"quote_version_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.QuoteVersionID == uuid.Nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "quote_version_id is required")
		return
	}

	result, err := h.service.Convert(r.Context(), estimateID, req.QuoteVersionID, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, result, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) respondError(w http.ResponseWriter, result *Result, err error) {
	switch {
	case errors.Is(err, estimates.ErrNotFound), errors.Is(err, workflow.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNotAccepted), errors.Is(err, ErrAlreadyConverted), errors.Is(err, ErrVersionMismatch):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, workflow.ErrStaleRevision):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, workflow.ErrUnauthorized):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrPartialConversion):
		// The project link is in place; report what exists so support tooling
		// can reconcile.
		h.logger.Error("partial conversion", slog.Any("error", err))
		httpx.JSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
	default:
		h.logger.Error("conversion failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
