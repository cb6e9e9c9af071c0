package workflow

import (
	"context"
	"fmt"
)

// Entity is the guard's view of an Estimate or Variation: just enough state
// to evaluate edges and named checks.
type Entity struct {
	Kind              Kind
	ID                int64
	Status            Status
	Revision          int64
	Total             float64
	LineItemCount     int
	QuoteVersionCount int
	LayoutID          *int64
}

// Validator evaluates one named pre-condition against an entity.
// It returns pass/fail plus a human-readable reason for the failure.
type Validator func(ctx context.Context, entity Entity) (ok bool, reason string, err error)

// Registry maps check names to validators.
type Registry map[string]Validator

// DefaultRegistry returns the built-in named checks referenced by the edge tables.
func DefaultRegistry() Registry {
	return Registry{
		CheckNonZeroTotal: func(_ context.Context, e Entity) (bool, string, error) {
			if e.Total == 0 {
				return false, "estimate total must be non-zero", nil
			}
			return true, "", nil
		},
		CheckHasLineItems: func(_ context.Context, e Entity) (bool, string, error) {
			if e.LineItemCount == 0 {
				return false, "at least one line item is required", nil
			}
			return true, "", nil
		},
		CheckHasQuoteVersion: func(_ context.Context, e Entity) (bool, string, error) {
			if e.QuoteVersionCount == 0 {
				return false, "at least one quote version is required", nil
			}
			return true, "", nil
		},
		CheckHasLayout: func(_ context.Context, e Entity) (bool, string, error) {
			if e.LayoutID == nil {
				return false, "an assigned layout is required", nil
			}
			return true, "", nil
		},
	}
}

// Evaluate runs a single named check. Unknown checks fail closed.
func (r Registry) Evaluate(ctx context.Context, check string, entity Entity) (bool, string, error) {
	validator, ok := r[check]
	if !ok {
		return false, fmt.Sprintf("unknown validation %q", check), nil
	}
	return validator(ctx, entity)
}
