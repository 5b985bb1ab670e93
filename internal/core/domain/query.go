package domain

import "strings"

// Intent is the retrieval strategy chosen for a question.
type Intent string

const (
	IntentSemantic   Intent = "semantic"
	IntentStructured Intent = "structured"
	IntentHybrid     Intent = "hybrid"
)

// IntentFromLabel maps a classifier label token to an Intent.
// Known labels (case-insensitive) map with confidence 0.9; anything else
// falls back to semantic search with confidence 0.5, which degrades
// gracefully and never runs an unvalidated structured query.
func IntentFromLabel(label string) (Intent, float64) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "SEMANTIC":
		return IntentSemantic, 0.9
	case "STRUCTURED":
		return IntentStructured, 0.9
	case "HYBRID":
		return IntentHybrid, 0.9
	default:
		return IntentSemantic, 0.5
	}
}

// QueryFilters holds structured constraints extracted from a question.
// Nil fields mean "unconstrained", not zero.
type QueryFilters struct {
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	Category  *string  `json:"category,omitempty"`
	SortBy    *string  `json:"sort_by,omitempty"`
	Limit     *int     `json:"limit,omitempty"`
}

// IsEmpty reports whether no filter field is set.
func (f QueryFilters) IsEmpty() bool {
	return f.MinPrice == nil && f.MaxPrice == nil && f.MinRating == nil &&
		f.Category == nil && f.SortBy == nil && f.Limit == nil
}

// RouterState is the per-request routing record. It is created fresh for
// each question, written once by the classify step and at most once by the
// extract step, and discarded after the routing decision is returned.
type RouterState struct {
	Question      string        `json:"question"`
	Intent        Intent        `json:"intent"`
	Filters       *QueryFilters `json:"filters,omitempty"`
	SemanticQuery string        `json:"semantic_query,omitempty"`
	Confidence    float64       `json:"confidence"`
}
