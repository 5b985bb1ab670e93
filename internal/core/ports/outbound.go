package ports

import (
	"context"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

// TextGenerator is the external text-generation capability. Instructions
// carry the fixed task description; input carries the user-supplied text.
// When input is empty the instructions are sent as the sole message.
type TextGenerator interface {
	Generate(ctx context.Context, instructions, input string) (domain.Generation, error)
}

// Embedder turns query text into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher performs similarity search over the product collection.
// A non-nil ids slice restricts the search to those product identifiers.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, ids []string, limit int) ([]domain.ScoredProduct, error)
}

// CandidateStore resolves product identifiers matching structured filters.
type CandidateStore interface {
	SelectCandidateIDs(ctx context.Context, filters domain.QueryFilters, limit int) ([]string, error)
}

// ReadOnlyQuerier executes an already-validated read-only SQL statement
// and returns its rows as column-name maps.
type ReadOnlyQuerier interface {
	QueryRows(ctx context.Context, query string) ([]map[string]any, error)
}

// UsageSink receives token-usage counters per generation call. Delivery is
// best effort; implementations must not fail the enclosing request.
type UsageSink interface {
	RecordUsage(ctx context.Context, operation string, usage domain.TokenUsage)
}
