package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// Estimating permissions checked by the workflow guard and handlers.
const (
	PermEstimateView    = "estimating.estimate.view"
	PermEstimateEdit    = "estimating.estimate.edit"
	PermEstimateSend    = "estimating.estimate.send"
	PermEstimateAccept  = "estimating.estimate.accept"
	PermEstimateConvert = "estimating.estimate.convert"
	PermVariationSend   = "estimating.variation.send"
	PermVariationDecide = "estimating.variation.decide"
	PermRulesManage     = "estimating.rules.manage"
	PermSettingsManage  = "estimating.settings.manage"
	PermAuditExport     = "estimating.audit.export"
)

// Project-side permissions for converted documents.
const (
	PermProjectView  = "projects.project.view"
	PermDocumentView = "projects.document.view"
)
