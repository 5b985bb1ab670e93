package domain

// ScoredProduct is a single similarity-search hit.
type ScoredProduct struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
	Score       float64 `json:"score"`
}

// RetrievalResult is the outcome of hybrid retrieval. IDs, Texts, Ratings
// and Scores are index-aligned: entry i of each slice describes the same
// product. CandidateCount is the size of the pre-search candidate set and
// is always >= the slice lengths.
type RetrievalResult struct {
	IDs            []string  `json:"ids"`
	Texts          []string  `json:"texts"`
	Ratings        []float64 `json:"ratings"`
	Scores         []float64 `json:"scores"`
	CandidateCount int       `json:"candidate_count"`
}

// Len returns the number of retrieved entries.
func (r RetrievalResult) Len() int { return len(r.IDs) }

// TokenUsage carries generation-service token counters. The core forwards
// these to the trace sink without transforming them.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Generation is the raw output of the text-generation service.
type Generation struct {
	Text  string
	Usage TokenUsage
}

// HybridRequest parameterizes a full hybrid pipeline run. Nil Filters
// means "route the question first"; zero TopK means the default.
type HybridRequest struct {
	Question      string
	Filters       *QueryFilters
	SemanticQuery string
	TopK          int
}

// HybridResult is the full outcome of the hybrid pipeline.
type HybridResult struct {
	Answer         string       `json:"answer"`
	Question       string       `json:"question"`
	Intent         Intent       `json:"intent"`
	Filters        QueryFilters `json:"filters"`
	SemanticQuery  string       `json:"semantic_query"`
	RetrievedIDs   []string     `json:"retrieved_ids"`
	RetrievedTexts []string     `json:"retrieved_texts"`
	Scores         []float64    `json:"similarity_scores"`
	CandidateCount int          `json:"candidate_count"`
}

// RAGResult is the outcome of the semantic-only pipeline.
type RAGResult struct {
	Answer  string          `json:"answer"`
	Sources []ScoredProduct `json:"sources"`
}

// SQLResult is the outcome of the structured-only pipeline. When the
// generated query is rejected or fails, Answer carries the user-visible
// error text and Err its detail; the pipeline itself does not fail.
type SQLResult struct {
	Answer      string           `json:"answer"`
	Question    string           `json:"question"`
	SQLQuery    string           `json:"sql_query"`
	Rows        []map[string]any `json:"rows,omitempty"`
	ResultCount int              `json:"result_count"`
	Err         string           `json:"error,omitempty"`
}

// ChatResult is the outcome of the auto-routed chat pipeline.
// CandidateCount is set only for hybrid dispatch.
type ChatResult struct {
	Answer         string        `json:"answer"`
	Intent         Intent        `json:"intent"`
	Filters        *QueryFilters `json:"filters,omitempty"`
	CandidateCount *int          `json:"candidate_count,omitempty"`
}
