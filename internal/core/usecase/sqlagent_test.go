package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

type querierFake struct {
	rows     []map[string]any
	err      error
	calls    int
	gotQuery string
}

func (f *querierFake) QueryRows(_ context.Context, query string) ([]map[string]any, error) {
	f.calls++
	f.gotQuery = query
	return f.rows, f.err
}

func TestSQLAnswerStripsFenceAndExecutes(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"```sql\nSELECT parent_asin, title, price FROM products WHERE price > 500 LIMIT 50\n```",
		"There are 3 products over $500.",
	}}
	querier := &querierFake{rows: []map[string]any{
		{"parent_asin": "p1", "title": "laptop", "price": 999.99},
		{"parent_asin": "p2", "title": "camera", "price": 650.0},
		{"parent_asin": "p3", "title": "phone", "price": 780.0},
	}}
	uc := NewSQLUseCase(gen, querier, nil)

	result, err := uc.Answer(context.Background(), "how many products cost over $500")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if strings.Contains(result.SQLQuery, "```") {
		t.Fatalf("fence must be stripped, got %q", result.SQLQuery)
	}
	if querier.gotQuery != result.SQLQuery {
		t.Fatalf("executed query %q differs from reported %q", querier.gotQuery, result.SQLQuery)
	}
	if result.ResultCount != 3 {
		t.Fatalf("expected result_count=3, got %d", result.ResultCount)
	}
	if result.Answer != "There are 3 products over $500." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if result.Err != "" {
		t.Fatalf("unexpected error field: %q", result.Err)
	}
}

func TestSQLAnswerRejectsNonSelect(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"DROP TABLE products"}}
	querier := &querierFake{}
	uc := NewSQLUseCase(gen, querier, nil)

	result, err := uc.Answer(context.Background(), "delete everything")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if querier.calls != 0 {
		t.Fatalf("rejected query must never execute, got %d calls", querier.calls)
	}
	if !strings.HasPrefix(result.Answer, "Error executing query:") {
		t.Fatalf("expected user-visible error string, got %q", result.Answer)
	}
	if result.Err == "" || !strings.Contains(result.Err, "only SELECT queries are allowed") {
		t.Fatalf("unexpected error detail: %q", result.Err)
	}
}

func TestSQLAnswerRejectsForbiddenKeyword(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT 1; DELETE FROM products"}}
	querier := &querierFake{}
	uc := NewSQLUseCase(gen, querier, nil)

	result, err := uc.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if querier.calls != 0 {
		t.Fatalf("forbidden query must never execute")
	}
	if !strings.Contains(result.Err, "forbidden SQL operation: DELETE") {
		t.Fatalf("unexpected error detail: %q", result.Err)
	}
}

func TestSQLAnswerReportsExecutionFailureInBody(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"SELECT * FROM products LIMIT 5"}}
	querier := &querierFake{err: errors.New("relation does not exist")}
	uc := NewSQLUseCase(gen, querier, nil)

	result, err := uc.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("execution failure must surface in the answer, got error %v", err)
	}
	if !strings.Contains(result.Answer, "relation does not exist") {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if gen.calls != 1 {
		t.Fatalf("answer generation must be skipped after execution failure, got %d calls", gen.calls)
	}
}

func TestSQLAnswerGenerationFailureIsFatal(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("backend down")}
	uc := NewSQLUseCase(gen, &querierFake{}, nil)

	_, err := uc.Answer(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "generate sql") {
		t.Fatalf("expected fatal generation error, got %v", err)
	}
}

func TestValidateReadOnlyAcceptsLowercaseSelect(t *testing.T) {
	if err := validateReadOnly("  select parent_asin from products limit 10  "); err != nil {
		t.Fatalf("validateReadOnly() error = %v", err)
	}
}

func TestValidateReadOnlyKindIsUnsafeQuery(t *testing.T) {
	err := validateReadOnly("TRUNCATE products")
	if !domain.IsKind(err, domain.ErrUnsafeQuery) {
		t.Fatalf("expected ErrUnsafeQuery kind, got %v", err)
	}
}
