package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
)

const intentClassificationInstructions = `You are a query classifier for a product search system.

Classify the user query into exactly one of these categories:

1. SEMANTIC - pure conceptual search
   - Looking for products by description or use case
   - Questions about product features or recommendations
   - Examples: "what are good earbuds for running", "tell me about coffee makers"

2. STRUCTURED - pure structured data queries
   - Counting, aggregating, statistics
   - Listing by exact criteria without semantic meaning
   - Examples: "how many products cost over $500", "show all categories"

3. HYBRID - combination of filters AND semantic search
   - Has both numeric/categorical filters and conceptual/descriptive terms
   - Examples: "best headphones under $100", "top rated coffee machines",
     "wireless earbuds with good bass under $50"

Respond with ONLY one word: SEMANTIC, STRUCTURED, or HYBRID.`

// routerPhase enumerates the states of the routing pass:
// INIT -> CLASSIFIED -> {EXTRACTED | DONE} -> TERMINAL.
// Single pass, no cycles, no backtracking.
type routerPhase int

const (
	phaseInit routerPhase = iota
	phaseClassified
	phaseExtracted
	phaseDone
	phaseTerminal
)

// Router classifies questions and extracts filters for hybrid ones.
// It is immutable after construction and safe for concurrent use; bootstrap
// builds exactly one instance per process and injects it into handlers.
type Router struct {
	generator ports.TextGenerator
	usage     ports.UsageSink
}

func NewRouter(generator ports.TextGenerator, usage ports.UsageSink) *Router {
	return &Router{
		generator: generator,
		usage:     usage,
	}
}

// Route runs the routing state machine for one question. Classification
// failures are fatal and propagate; a malformed extraction response is the
// only locally recovered failure.
func (r *Router) Route(ctx context.Context, question string) (domain.RouterState, error) {
	state := domain.RouterState{Question: question}
	if question == "" {
		return state, domain.WrapError(domain.ErrInvalidInput, "route question", errors.New("question is empty"))
	}

	phase := phaseInit
	for phase != phaseTerminal {
		switch phase {
		case phaseInit:
			if err := r.classify(ctx, &state); err != nil {
				return state, err
			}
			phase = phaseClassified

		case phaseClassified:
			if state.Intent == domain.IntentHybrid {
				if err := r.extract(ctx, &state); err != nil {
					return state, err
				}
				phase = phaseExtracted
			} else {
				phase = phaseDone
			}

		case phaseExtracted, phaseDone:
			phase = phaseTerminal
		}
	}

	return state, nil
}

func (r *Router) classify(ctx context.Context, state *domain.RouterState) error {
	gen, err := r.generator.Generate(ctx, intentClassificationInstructions, state.Question)
	if err != nil {
		return fmt.Errorf("classify intent: %w", err)
	}
	recordUsage(ctx, r.usage, "classify_intent", gen.Usage)

	state.Intent, state.Confidence = domain.IntentFromLabel(gen.Text)
	return nil
}

func (r *Router) extract(ctx context.Context, state *domain.RouterState) error {
	gen, err := r.generator.Generate(ctx, filterExtractionInstructions, state.Question)
	if err != nil {
		return fmt.Errorf("extract filters: %w", err)
	}
	recordUsage(ctx, r.usage, "extract_filters", gen.Usage)

	filters, semanticQuery := parseExtractedFilters(gen.Text, state.Question)
	state.Filters = &filters
	state.SemanticQuery = semanticQuery
	return nil
}

func recordUsage(ctx context.Context, sink ports.UsageSink, operation string, usage domain.TokenUsage) {
	if sink != nil {
		sink.RecordUsage(ctx, operation, usage)
	}
}
