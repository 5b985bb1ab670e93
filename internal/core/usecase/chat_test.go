package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

type hybridPipelineFake struct {
	result *domain.HybridResult
	err    error
	calls  int
	gotReq domain.HybridRequest
}

func (f *hybridPipelineFake) Retrieve(context.Context, string, domain.QueryFilters, int) (domain.RetrievalResult, error) {
	return domain.RetrievalResult{}, nil
}

func (f *hybridPipelineFake) Answer(_ context.Context, req domain.HybridRequest) (*domain.HybridResult, error) {
	f.calls++
	f.gotReq = req
	return f.result, f.err
}

type semanticPipelineFake struct {
	result *domain.RAGResult
	calls  int
}

func (f *semanticPipelineFake) Answer(context.Context, string, int) (*domain.RAGResult, error) {
	f.calls++
	return f.result, nil
}

type structuredPipelineFake struct {
	result *domain.SQLResult
	calls  int
}

func (f *structuredPipelineFake) Answer(context.Context, string) (*domain.SQLResult, error) {
	f.calls++
	return f.result, nil
}

func TestChatDispatchesStructuredIntent(t *testing.T) {
	router := &routerStub{state: domain.RouterState{Intent: domain.IntentStructured, Confidence: 0.9}}
	structured := &structuredPipelineFake{result: &domain.SQLResult{Answer: "42 products"}}
	hybrid := &hybridPipelineFake{}
	semantic := &semanticPipelineFake{}
	uc := NewChatUseCase(router, hybrid, semantic, structured, 5)

	result, err := uc.Chat(context.Background(), "how many products cost over $500")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if structured.calls != 1 || hybrid.calls != 0 || semantic.calls != 0 {
		t.Fatalf("expected structured dispatch, got sql=%d hybrid=%d rag=%d", structured.calls, hybrid.calls, semantic.calls)
	}
	if result.Intent != domain.IntentStructured || result.Answer != "42 products" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Filters != nil {
		t.Fatalf("structured result must carry no filters")
	}
}

func TestChatDispatchesHybridIntentWithRoutedFilters(t *testing.T) {
	filters := domain.QueryFilters{MaxPrice: floatPtr(50)}
	router := &routerStub{state: domain.RouterState{
		Intent:        domain.IntentHybrid,
		Filters:       &filters,
		SemanticQuery: "coffee makers",
	}}
	hybrid := &hybridPipelineFake{result: &domain.HybridResult{
		Answer:         "try these",
		Filters:        filters,
		CandidateCount: 23,
	}}
	uc := NewChatUseCase(router, hybrid, &semanticPipelineFake{}, &structuredPipelineFake{}, 7)

	result, err := uc.Chat(context.Background(), "top rated coffee makers under $50")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if hybrid.calls != 1 {
		t.Fatalf("expected hybrid dispatch, got %d calls", hybrid.calls)
	}
	if hybrid.gotReq.Filters == nil || *hybrid.gotReq.Filters.MaxPrice != 50 {
		t.Fatalf("routed filters must be forwarded, got %+v", hybrid.gotReq.Filters)
	}
	if hybrid.gotReq.SemanticQuery != "coffee makers" || hybrid.gotReq.TopK != 7 {
		t.Fatalf("unexpected hybrid request: %+v", hybrid.gotReq)
	}
	if result.Filters == nil || *result.Filters.MaxPrice != 50 {
		t.Fatalf("chat result must expose filters, got %+v", result.Filters)
	}
	if result.CandidateCount == nil || *result.CandidateCount != 23 {
		t.Fatalf("hybrid chat result must expose the candidate count, got %v", result.CandidateCount)
	}
}

func TestChatNonHybridResultsCarryNoCandidateCount(t *testing.T) {
	router := &routerStub{state: domain.RouterState{Intent: domain.IntentSemantic, Confidence: 0.5}}
	semantic := &semanticPipelineFake{result: &domain.RAGResult{Answer: "ok"}}
	uc := NewChatUseCase(router, &hybridPipelineFake{}, semantic, &structuredPipelineFake{}, 5)

	result, err := uc.Chat(context.Background(), "wireless earbuds for running")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.CandidateCount != nil {
		t.Fatalf("semantic chat result must carry no candidate count, got %v", *result.CandidateCount)
	}
}

func TestChatDefaultsToSemanticIntent(t *testing.T) {
	router := &routerStub{state: domain.RouterState{Intent: domain.IntentSemantic, Confidence: 0.5}}
	semantic := &semanticPipelineFake{result: &domain.RAGResult{Answer: "earbuds for running"}}
	uc := NewChatUseCase(router, &hybridPipelineFake{}, semantic, &structuredPipelineFake{}, 5)

	result, err := uc.Chat(context.Background(), "wireless earbuds for running")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if semantic.calls != 1 {
		t.Fatalf("expected semantic dispatch, got %d calls", semantic.calls)
	}
	if result.Intent != domain.IntentSemantic || result.Answer != "earbuds for running" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestChatRoutingFailurePropagates(t *testing.T) {
	router := &routerStub{err: errors.New("classifier down")}
	uc := NewChatUseCase(router, &hybridPipelineFake{}, &semanticPipelineFake{}, &structuredPipelineFake{}, 5)

	if _, err := uc.Chat(context.Background(), "q"); err == nil {
		t.Fatalf("expected routing error")
	}
}
