package estimates

import (
	"github.com/go-chi/chi/v5"

	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
)

// MountRoutes attaches the estimate API under the given router.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny(rbac.PermEstimateView, rbac.PermEstimateEdit))
		r.Get("/estimates", h.List)
		r.Get("/estimates/{id}", h.Show)
		r.Get("/estimates/{id}/versions", h.ListQuoteVersions)
		r.Get("/estimates/{id}/versions/{versionID}", h.ShowQuoteVersion)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll(rbac.PermEstimateEdit))
		r.Post("/estimates", h.Create)
		r.Post("/estimates/{id}", h.Update)
		r.Post("/estimates/price-preview", h.PricePreview)
		r.Post("/estimates/{id}/versions", h.CreateQuoteVersion)
		// Transition permissions are enforced edge by edge inside the guard.
		r.Post("/estimates/{id}/transition", h.Transition)
	})
}
