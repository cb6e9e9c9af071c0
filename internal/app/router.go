package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitebeam-erp/sitebeam-erp/internal/audit"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/conversion"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/estimates"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/grouping"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/settings"
	"github.com/sitebeam-erp/sitebeam-erp/internal/estimating/variations"
	"github.com/sitebeam-erp/sitebeam-erp/internal/platform/httpx"
	"github.com/sitebeam-erp/sitebeam-erp/internal/projects"
	"github.com/sitebeam-erp/sitebeam-erp/internal/purchaseorders"
	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
	"github.com/sitebeam-erp/sitebeam-erp/internal/workorders"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config
	Pool   *pgxpool.Pool

	Guard rbac.Middleware

	EstimateHandler      *estimates.Handler
	VariationHandler     *variations.Handler
	GroupingHandler      *grouping.Handler
	SettingsHandler      *settings.Handler
	ConversionHandler    *conversion.Handler
	ProjectHandler       *projects.Handler
	WorkOrderHandler     *workorders.Handler
	PurchaseOrderHandler *purchaseorders.Handler
	AuditHandler         *audit.Handler

	Middlewares []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(params RouterParams) chi.Router {
	r := chi.NewRouter()
	for _, mw := range params.Middlewares {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		params.EstimateHandler.MountRoutes(api, params.Guard)
		params.VariationHandler.MountRoutes(api, params.Guard)
		params.GroupingHandler.MountRoutes(api, params.Guard)
		params.SettingsHandler.MountRoutes(api, params.Guard)
		params.ConversionHandler.MountRoutes(api, params.Guard)
		params.ProjectHandler.MountRoutes(api, params.Guard)
		params.WorkOrderHandler.MountRoutes(api, params.Guard)
		params.PurchaseOrderHandler.MountRoutes(api, params.Guard)
		params.AuditHandler.MountRoutes(api, params.Guard)
	})

	return r
}
