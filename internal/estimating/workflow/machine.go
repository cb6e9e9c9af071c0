package workflow

// Kind identifies which state machine an entity belongs to.
type Kind string

const (
	KindEstimate  Kind = "estimate"
	KindVariation Kind = "variation"
)

// Status is a workflow status value as stored on the entity row.
type Status string

// Estimate statuses. The legacy values are retained for rows written before
// the workflow rework; they only carry bridge edges into the current flow.
const (
	EstimateDraft          Status = "draft"
	EstimateInternalReview Status = "internal_review"
	EstimateReadyToSend    Status = "ready_to_send"
	EstimateSent           Status = "sent"
	EstimateAccepted       Status = "accepted"
	EstimateWon            Status = "won"
	EstimateLost           Status = "lost"
	EstimateArchived       Status = "archived"

	// Legacy statuses.
	EstimatePending Status = "pending"
	EstimateQuoted  Status = "quoted"
)

// Variation statuses.
const (
	VariationDraft          Status = "draft"
	VariationInternalReview Status = "internal_review"
	VariationSent           Status = "sent"
	VariationApproved       Status = "approved"
	VariationRejected       Status = "rejected"
	VariationWithdrawn      Status = "withdrawn"
)

// Named validation checks referenced by edges.
const (
	CheckNonZeroTotal    = "non_zero_total"
	CheckHasLineItems    = "has_line_items"
	CheckHasQuoteVersion = "has_quote_version"
	CheckHasLayout       = "has_layout"
)

// Edge describes one permitted transition. A transition absent from the table
// is illegal; the tables are the single source of truth so UI code never
// decides legality on its own.
type Edge struct {
	From        Status
	To          Status
	Permission  string
	Validations []string
}

var estimateEdges = []Edge{
	{From: EstimateDraft, To: EstimateInternalReview, Validations: []string{CheckHasLineItems}},
	{From: EstimateDraft, To: EstimateArchived},
	{From: EstimateInternalReview, To: EstimateDraft},
	{From: EstimateInternalReview, To: EstimateReadyToSend, Validations: []string{CheckNonZeroTotal, CheckHasLayout}},
	{From: EstimateReadyToSend, To: EstimateInternalReview},
	{From: EstimateReadyToSend, To: EstimateSent, Permission: "estimating.estimate.send", Validations: []string{CheckHasQuoteVersion}},
	{From: EstimateSent, To: EstimateAccepted, Permission: "estimating.estimate.accept"},
	{From: EstimateSent, To: EstimateLost},
	{From: EstimateSent, To: EstimateArchived},
	{From: EstimateAccepted, To: EstimateWon, Permission: "estimating.estimate.convert", Validations: []string{CheckHasQuoteVersion}},
	{From: EstimateAccepted, To: EstimateLost},

	// Legacy bridges.
	{From: EstimatePending, To: EstimateDraft},
	{From: EstimateQuoted, To: EstimateSent, Permission: "estimating.estimate.send"},
}

var variationEdges = []Edge{
	{From: VariationDraft, To: VariationInternalReview, Validations: []string{CheckHasLineItems}},
	{From: VariationDraft, To: VariationWithdrawn},
	{From: VariationInternalReview, To: VariationDraft},
	{From: VariationInternalReview, To: VariationSent, Permission: "estimating.variation.send", Validations: []string{CheckNonZeroTotal}},
	{From: VariationSent, To: VariationApproved, Permission: "estimating.variation.decide"},
	{From: VariationSent, To: VariationRejected, Permission: "estimating.variation.decide"},
	{From: VariationSent, To: VariationWithdrawn},
}

// FindEdge looks up the edge for (from, to) in the machine for kind.
func FindEdge(kind Kind, from, to Status) (Edge, bool) {
	for _, edge := range edgesFor(kind) {
		if edge.From == from && edge.To == to {
			return edge, true
		}
	}
	return Edge{}, false
}

// Normalize defaults an unset status to draft for backward compatibility with
// legacy rows that predate the workflow column.
func Normalize(status Status) Status {
	if status == "" {
		return EstimateDraft
	}
	return status
}

// Terminal reports whether the status has no outgoing edges.
func Terminal(kind Kind, status Status) bool {
	for _, edge := range edgesFor(kind) {
		if edge.From == status {
			return false
		}
	}
	return true
}

func edgesFor(kind Kind) []Edge {
	if kind == KindVariation {
		return variationEdges
	}
	return estimateEdges
}
