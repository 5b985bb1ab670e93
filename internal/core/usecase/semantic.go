package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
)

// SemanticUseCase answers purely conceptual questions with an
// unconstrained similarity search over the whole catalog.
type SemanticUseCase struct {
	embedder  ports.Embedder
	searcher  ports.VectorSearcher
	generator ports.TextGenerator
	usage     ports.UsageSink
}

func NewSemanticUseCase(
	embedder ports.Embedder,
	searcher ports.VectorSearcher,
	generator ports.TextGenerator,
	usage ports.UsageSink,
) *SemanticUseCase {
	return &SemanticUseCase{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		usage:     usage,
	}
}

func (uc *SemanticUseCase) Answer(ctx context.Context, question string, topK int) (*domain.RAGResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := uc.searcher.Search(ctx, queryVector, nil, topK)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	gen, err := uc.generator.Generate(ctx, buildSemanticPrompt(question, hits), "")
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	recordUsage(ctx, uc.usage, "rag_generate", gen.Usage)

	return &domain.RAGResult{
		Answer:  gen.Text,
		Sources: hits,
	}, nil
}

func buildSemanticPrompt(question string, hits []domain.ScoredProduct) string {
	var contextBuilder strings.Builder
	for _, hit := range hits {
		fmt.Fprintf(&contextBuilder, "- ID: %s, rating: %v, relevance: %.2f\n", hit.ID, hit.Rating, hit.Score)
		fmt.Fprintf(&contextBuilder, "  Description: %s\n\n", hit.Description)
	}

	return fmt.Sprintf(`You are a shopping assistant helping customers find products.

Here are products from our catalog relevant to the question:

%s

User question: %s

Instructions:
- Recommend products only from the catalog excerpts above
- Mention specific prices and ratings when available
- If nothing fits, say so directly
- Be helpful and conversational`, contextBuilder.String(), question)
}
