package usecase

import (
	"context"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
)

// ChatUseCase routes a question once and dispatches it to the matching
// single-strategy or hybrid pipeline.
type ChatUseCase struct {
	router     ports.QuestionRouter
	hybrid     ports.HybridPipeline
	semantic   ports.SemanticPipeline
	structured ports.StructuredPipeline
	topK       int
}

func NewChatUseCase(
	router ports.QuestionRouter,
	hybrid ports.HybridPipeline,
	semantic ports.SemanticPipeline,
	structured ports.StructuredPipeline,
	topK int,
) *ChatUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ChatUseCase{
		router:     router,
		hybrid:     hybrid,
		semantic:   semantic,
		structured: structured,
		topK:       topK,
	}
}

func (uc *ChatUseCase) Chat(ctx context.Context, question string) (*domain.ChatResult, error) {
	state, err := uc.router.Route(ctx, question)
	if err != nil {
		return nil, err
	}

	switch state.Intent {
	case domain.IntentStructured:
		result, err := uc.structured.Answer(ctx, question)
		if err != nil {
			return nil, err
		}
		return &domain.ChatResult{Answer: result.Answer, Intent: domain.IntentStructured}, nil

	case domain.IntentHybrid:
		result, err := uc.hybrid.Answer(ctx, domain.HybridRequest{
			Question:      question,
			Filters:       state.Filters,
			SemanticQuery: state.SemanticQuery,
			TopK:          uc.topK,
		})
		if err != nil {
			return nil, err
		}
		candidateCount := result.CandidateCount
		return &domain.ChatResult{
			Answer:         result.Answer,
			Intent:         domain.IntentHybrid,
			Filters:        &result.Filters,
			CandidateCount: &candidateCount,
		}, nil

	default:
		result, err := uc.semantic.Answer(ctx, question, uc.topK)
		if err != nil {
			return nil, err
		}
		return &domain.ChatResult{Answer: result.Answer, Intent: domain.IntentSemantic}, nil
	}
}
