package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
)

const (
	// candidatePoolLimit bounds the structured pre-filter independently of
	// the caller's top_k so the semantic rank has enough diversity to work
	// with.
	candidatePoolLimit = 100

	defaultTopK = 5
)

// HybridUseCase combines a relational candidate filter with a vector
// similarity search restricted to the resolved candidate set.
type HybridUseCase struct {
	candidates ports.CandidateStore
	embedder   ports.Embedder
	searcher   ports.VectorSearcher
	generator  ports.TextGenerator
	router     ports.QuestionRouter
	usage      ports.UsageSink
}

func NewHybridUseCase(
	candidates ports.CandidateStore,
	embedder ports.Embedder,
	searcher ports.VectorSearcher,
	generator ports.TextGenerator,
	router ports.QuestionRouter,
	usage ports.UsageSink,
) *HybridUseCase {
	return &HybridUseCase{
		candidates: candidates,
		embedder:   embedder,
		searcher:   searcher,
		generator:  generator,
		router:     router,
		usage:      usage,
	}
}

// Retrieve resolves candidate ids for the filters, then ranks them by
// similarity to the semantic query. An empty candidate set short-circuits
// before any embedding or search call; that is a normal outcome, not an
// error. Backend failures propagate unchanged and are never retried.
func (uc *HybridUseCase) Retrieve(
	ctx context.Context,
	semanticQuery string,
	filters domain.QueryFilters,
	topK int,
) (domain.RetrievalResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	ids, err := uc.candidates.SelectCandidateIDs(ctx, filters, candidatePoolLimit)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("resolve candidates: %w", err)
	}
	if len(ids) == 0 {
		return emptyRetrievalResult(), nil
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, semanticQuery)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed semantic query: %w", err)
	}

	hits, err := uc.searcher.Search(ctx, queryVector, ids, topK)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("search candidates: %w", err)
	}

	result := domain.RetrievalResult{
		IDs:            make([]string, 0, len(hits)),
		Texts:          make([]string, 0, len(hits)),
		Ratings:        make([]float64, 0, len(hits)),
		Scores:         make([]float64, 0, len(hits)),
		CandidateCount: len(ids),
	}
	for _, hit := range hits {
		result.IDs = append(result.IDs, hit.ID)
		result.Texts = append(result.Texts, hit.Description)
		result.Ratings = append(result.Ratings, hit.Rating)
		result.Scores = append(result.Scores, hit.Score)
	}
	return result, nil
}

// Answer runs the full hybrid pipeline. When the request carries no
// pre-extracted filters it routes the question first.
func (uc *HybridUseCase) Answer(ctx context.Context, req domain.HybridRequest) (*domain.HybridResult, error) {
	filters := domain.QueryFilters{}
	semanticQuery := req.SemanticQuery

	if req.Filters == nil {
		state, err := uc.router.Route(ctx, req.Question)
		if err != nil {
			return nil, err
		}
		if state.Filters != nil {
			filters = *state.Filters
		}
		semanticQuery = state.SemanticQuery
	} else {
		filters = *req.Filters
	}
	if semanticQuery == "" {
		semanticQuery = req.Question
	}

	retrieved, err := uc.Retrieve(ctx, semanticQuery, filters, req.TopK)
	if err != nil {
		return nil, err
	}

	prompt := buildHybridPrompt(formatHybridContext(retrieved, filters), req.Question, filters)
	gen, err := uc.generator.Generate(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("generate hybrid answer: %w", err)
	}
	recordUsage(ctx, uc.usage, "hybrid_generate", gen.Usage)

	return &domain.HybridResult{
		Answer:         gen.Text,
		Question:       req.Question,
		Intent:         domain.IntentHybrid,
		Filters:        filters,
		SemanticQuery:  semanticQuery,
		RetrievedIDs:   retrieved.IDs,
		RetrievedTexts: retrieved.Texts,
		Scores:         retrieved.Scores,
		CandidateCount: retrieved.CandidateCount,
	}, nil
}

func emptyRetrievalResult() domain.RetrievalResult {
	return domain.RetrievalResult{
		IDs:     []string{},
		Texts:   []string{},
		Ratings: []float64{},
		Scores:  []float64{},
	}
}

// formatHybridContext renders the retrieval result and the present filter
// fields into context text. Absent fields are omitted entirely. Pure
// function, no I/O.
func formatHybridContext(result domain.RetrievalResult, filters domain.QueryFilters) string {
	var b strings.Builder

	fmt.Fprintf(&b, "(Filtered from %d products", result.CandidateCount)
	if filters.MinPrice != nil {
		fmt.Fprintf(&b, ", min price: $%v", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		fmt.Fprintf(&b, ", max price: $%v", *filters.MaxPrice)
	}
	if filters.MinRating != nil {
		fmt.Fprintf(&b, ", min rating: %v", *filters.MinRating)
	}
	if filters.Category != nil {
		fmt.Fprintf(&b, ", category: %s", *filters.Category)
	}
	b.WriteString(")\n\n")

	for i := range result.IDs {
		fmt.Fprintf(&b, "- ID: %s, rating: %v, relevance: %.2f\n", result.IDs[i], result.Ratings[i], result.Scores[i])
		fmt.Fprintf(&b, "  Description: %s\n\n", result.Texts[i])
	}
	return b.String()
}

func buildHybridPrompt(formattedContext, question string, filters domain.QueryFilters) string {
	var criteria []string
	if filters.MinPrice != nil || filters.MaxPrice != nil {
		var priceRange strings.Builder
		if filters.MinPrice != nil {
			fmt.Fprintf(&priceRange, "from $%v", *filters.MinPrice)
		}
		if filters.MaxPrice != nil {
			fmt.Fprintf(&priceRange, " up to $%v", *filters.MaxPrice)
		}
		criteria = append(criteria, "Price: "+strings.TrimSpace(priceRange.String()))
	}
	if filters.MinRating != nil {
		criteria = append(criteria, fmt.Sprintf("Rating: %v+ stars", *filters.MinRating))
	}
	if filters.Category != nil {
		criteria = append(criteria, "Category: "+*filters.Category)
	}

	criteriaBlock := "No specific filters"
	if len(criteria) > 0 {
		criteriaBlock = strings.Join(criteria, "\n")
	}

	return fmt.Sprintf(`You are a shopping assistant helping customers find products.

The user is looking for products with these criteria:
%s

Here are the matching products from our catalog:

%s

User question: %s

Instructions:
- Recommend the best matching products based on both the filters and the user's needs
- Mention specific prices and ratings when available
- If the results are limited, acknowledge the filtering criteria
- Be helpful and conversational`, criteriaBlock, formattedContext, question)
}
