package variations

import (
	"github.com/go-chi/chi/v5"

	"github.com/sitebeam-erp/sitebeam-erp/internal/rbac"
)

// MountRoutes attaches the variation API under the given router.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAny(rbac.PermEstimateView, rbac.PermEstimateEdit))
		r.Get("/estimates/{estimateID}/variations", h.ListForEstimate)
		r.Get("/variations/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireAll(rbac.PermEstimateEdit))
		r.Post("/variations", h.Create)
		r.Post("/variations/{id}", h.Update)
		// Send/decide permissions are enforced edge by edge inside the guard.
		r.Post("/variations/{id}/transition", h.Transition)
	})
}
