package usecase

import (
	"encoding/json"
	"strings"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

const filterExtractionInstructions = `Extract filters from the product search query.

Return a JSON object with these fields (use null if not mentioned):
{
    "min_price": number or null,
    "max_price": number or null,
    "min_rating": number or null (e.g. 4.5 for "highly rated"),
    "category": string or null,
    "sort_by": "rating" | "price" | "popularity" | null,
    "limit": number or null,
    "semantic_query": "the conceptual/descriptive part for semantic search"
}

Examples:
- "best headphones under $100" -> {"max_price": 100, "semantic_query": "best headphones"}
- "top rated coffee makers" -> {"min_rating": 4.0, "sort_by": "rating", "semantic_query": "coffee makers"}
- "cheap wireless earbuds" -> {"sort_by": "price", "semantic_query": "cheap wireless earbuds"}

Only return the JSON, no other text.`

// parseExtractedFilters parses the extraction response. Null fields pass
// through as absent and unknown fields are ignored. A malformed response
// yields empty filters and the verbatim question; this is the sole local
// recovery path in the routing core.
func parseExtractedFilters(raw, question string) (domain.QueryFilters, string) {
	var payload struct {
		domain.QueryFilters
		SemanticQuery *string `json:"semantic_query"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return domain.QueryFilters{}, question
	}

	semanticQuery := question
	if payload.SemanticQuery != nil {
		semanticQuery = *payload.SemanticQuery
	}
	return payload.QueryFilters, semanticQuery
}

// stripCodeFence removes a single leading/trailing fenced-code wrapper,
// which some models add despite instructions.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 0 {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
