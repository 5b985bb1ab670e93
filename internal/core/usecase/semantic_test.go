package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

func TestSemanticAnswerSearchesWholeCatalog(t *testing.T) {
	embedder := &embedderFake{}
	searcher := &searcherFake{hits: []domain.ScoredProduct{
		{ID: "B01", Description: "conical burr grinder", Rating: 4.6, Score: 0.93},
		{ID: "B02", Description: "blade grinder", Rating: 3.9, Score: 0.71},
	}}
	gen := &scriptedGenerator{responses: []string{"A conical burr grinder gives the most even grind."}}
	usage := &usageRecorderFake{}
	uc := NewSemanticUseCase(embedder, searcher, gen, usage)

	result, err := uc.Answer(context.Background(), "what makes a good grinder?", 2)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if embedder.gotText != "what makes a good grinder?" {
		t.Errorf("embedded text = %q", embedder.gotText)
	}
	if searcher.gotIDs != nil {
		t.Errorf("search should be unconstrained, got ids %v", searcher.gotIDs)
	}
	if searcher.gotLimit != 2 {
		t.Errorf("search limit = %d, want 2", searcher.gotLimit)
	}
	if result.Answer != "A conical burr grinder gives the most even grind." {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 2 || result.Sources[0].ID != "B01" {
		t.Errorf("sources = %+v", result.Sources)
	}
	if len(usage.operations) != 1 || usage.operations[0] != "rag_generate" {
		t.Errorf("usage operations = %v", usage.operations)
	}
}

func TestSemanticAnswerDefaultsTopK(t *testing.T) {
	searcher := &searcherFake{}
	uc := NewSemanticUseCase(&embedderFake{}, searcher, &scriptedGenerator{responses: []string{"ok"}}, nil)

	if _, err := uc.Answer(context.Background(), "q", 0); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if searcher.gotLimit != defaultTopK {
		t.Errorf("search limit = %d, want %d", searcher.gotLimit, defaultTopK)
	}
}

func TestSemanticAnswerPromptContainsHits(t *testing.T) {
	searcher := &searcherFake{hits: []domain.ScoredProduct{
		{ID: "B07", Description: "stovetop moka pot", Rating: 4.2, Score: 0.88},
	}}
	gen := &scriptedGenerator{responses: []string{"ok"}}
	uc := NewSemanticUseCase(&embedderFake{}, searcher, gen, nil)

	if _, err := uc.Answer(context.Background(), "cheap espresso at home?", 1); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	prompt := gen.instructions[0]
	if !strings.Contains(prompt, "stovetop moka pot") {
		t.Errorf("prompt missing hit description:\n%s", prompt)
	}
	if !strings.Contains(prompt, "relevance: 0.88") {
		t.Errorf("prompt missing formatted score:\n%s", prompt)
	}
	if !strings.Contains(prompt, "cheap espresso at home?") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
}

func TestSemanticAnswerEmbedFailureIsFatal(t *testing.T) {
	uc := NewSemanticUseCase(&embedderFake{err: errors.New("embed down")}, &searcherFake{}, &scriptedGenerator{}, nil)

	if _, err := uc.Answer(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestSemanticAnswerSearchFailureIsFatal(t *testing.T) {
	uc := NewSemanticUseCase(&embedderFake{}, &searcherFake{err: errors.New("search down")}, &scriptedGenerator{}, nil)

	if _, err := uc.Answer(context.Background(), "q", 3); err == nil {
		t.Fatal("expected error when search fails")
	}
}
