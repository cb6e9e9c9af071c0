package projects

import (
	"time"

	"github.com/google/uuid"
)

// Project is the execution-side record created when a won estimate converts.
type Project struct {
	ID                 int64      `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Name               string     `json:"name"`
	CustomerName       string     `json:"customer_name"`
	SourceEstimateID   int64      `json:"source_estimate_id"`
	SourceQuoteVersion uuid.UUID  `json:"source_quote_version_id"`
	ContractValue      float64    `json:"contract_value"`
	Status             string     `json:"status"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CreatedBy          int64      `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Project statuses. Execution-side flow is out of scope here; conversion only
// ever creates a project in the active state.
const (
	StatusActive   = "active"
	StatusOnHold   = "on_hold"
	StatusComplete = "complete"
)
