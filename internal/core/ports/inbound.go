package ports

import (
	"context"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

// QuestionRouter classifies a question and, for hybrid intent, extracts
// structured filters plus the residual semantic query.
type QuestionRouter interface {
	Route(ctx context.Context, question string) (domain.RouterState, error)
}

// HybridPipeline is the inbound contract for filtered semantic retrieval
// and answer generation.
type HybridPipeline interface {
	Retrieve(ctx context.Context, semanticQuery string, filters domain.QueryFilters, topK int) (domain.RetrievalResult, error)
	Answer(ctx context.Context, req domain.HybridRequest) (*domain.HybridResult, error)
}

// SemanticPipeline answers purely conceptual questions.
type SemanticPipeline interface {
	Answer(ctx context.Context, question string, topK int) (*domain.RAGResult, error)
}

// StructuredPipeline answers questions over exact catalog data.
type StructuredPipeline interface {
	Answer(ctx context.Context, question string) (*domain.SQLResult, error)
}

// ChatService routes a question and dispatches it to the matching pipeline.
type ChatService interface {
	Chat(ctx context.Context, question string) (*domain.ChatResult, error)
}
