package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
)

const productSchemaDescription = `Table: products
Columns:
  - asin: VARCHAR(20) PRIMARY KEY - Amazon Standard Identification Number
  - parent_asin: VARCHAR(20) - Parent product ASIN for variations
  - title: TEXT - Product title/name
  - price: DECIMAL(10, 2) - Product price in USD
  - average_rating: DECIMAL(3, 2) - Average customer rating (1.0-5.0)
  - rating_number: INTEGER - Number of customer ratings
  - main_category: VARCHAR(100) - Main product category (e.g. 'Electronics')
  - store: VARCHAR(255) - Store/brand name
  - description: TEXT - Product description
  - features: JSONB - List of product features
  - created_at: TIMESTAMP - Record creation timestamp

Indexes available on: average_rating, price, main_category, rating_number, parent_asin`

const sqlGenerationInstructions = `You are a SQL expert. Generate a PostgreSQL query based on the user's question.

` + productSchemaDescription + `

Rules:
1. Only generate SELECT queries (no INSERT, UPDATE, DELETE)
2. Always include a LIMIT clause (max 50 rows)
3. Return ONLY the SQL query, no explanations
4. Use ILIKE for case-insensitive text matching
5. For product searches, always return parent_asin for linking with vector search`

const answerRowsLimit = 10

// forbiddenSQLKeywords are rejected as substrings of the generated query.
// Substring scanning is a weak control: it can flag identifiers that merely
// contain a keyword and misses obfuscated writes. The database role used by
// the querier must itself be read-only.
var forbiddenSQLKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER", "CREATE"}

// SQLUseCase turns a natural-language question into a bounded read-only
// query, executes it, and generates a conversational answer from the rows.
type SQLUseCase struct {
	generator ports.TextGenerator
	querier   ports.ReadOnlyQuerier
	usage     ports.UsageSink
}

func NewSQLUseCase(generator ports.TextGenerator, querier ports.ReadOnlyQuerier, usage ports.UsageSink) *SQLUseCase {
	return &SQLUseCase{
		generator: generator,
		querier:   querier,
		usage:     usage,
	}
}

// Answer runs the structured pipeline. A rejected or failing query is
// reported inside the result rather than returned as an error, so the
// caller always gets a user-visible answer.
func (uc *SQLUseCase) Answer(ctx context.Context, question string) (*domain.SQLResult, error) {
	gen, err := uc.generator.Generate(ctx, sqlGenerationInstructions, "User question: "+question)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	recordUsage(ctx, uc.usage, "generate_sql", gen.Usage)

	query := stripCodeFence(gen.Text)

	rows, err := uc.execute(ctx, query)
	if err != nil {
		return &domain.SQLResult{
			Answer:   "Error executing query: " + err.Error(),
			Question: question,
			SQLQuery: query,
			Rows:     []map[string]any{},
			Err:      err.Error(),
		}, nil
	}

	answer, err := uc.generateAnswer(ctx, question, rows)
	if err != nil {
		return nil, fmt.Errorf("generate sql answer: %w", err)
	}

	return &domain.SQLResult{
		Answer:      answer,
		Question:    question,
		SQLQuery:    query,
		Rows:        rows,
		ResultCount: len(rows),
	}, nil
}

func (uc *SQLUseCase) execute(ctx context.Context, query string) ([]map[string]any, error) {
	if err := validateReadOnly(query); err != nil {
		return nil, err
	}
	return uc.querier.QueryRows(ctx, query)
}

func (uc *SQLUseCase) generateAnswer(ctx context.Context, question string, rows []map[string]any) (string, error) {
	sample := rows
	if len(sample) > answerRowsLimit {
		sample = sample[:answerRowsLimit]
	}
	rowsJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result rows: %w", err)
	}

	instructions := `You are a helpful shopping assistant. Based on the database query results,
answer the user's question naturally. Mention specific products with their
prices and ratings when relevant.`

	input := fmt.Sprintf("User question: %s\n\nQuery results (JSON):\n%s", question, rowsJSON)

	gen, err := uc.generator.Generate(ctx, instructions, input)
	if err != nil {
		return "", err
	}
	recordUsage(ctx, uc.usage, "generate_sql_answer", gen.Usage)
	return gen.Text, nil
}

func validateReadOnly(query string) error {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") {
		return domain.WrapError(domain.ErrUnsafeQuery, "validate sql", errors.New("only SELECT queries are allowed"))
	}
	for _, keyword := range forbiddenSQLKeywords {
		if strings.Contains(upper, keyword) {
			return domain.WrapError(domain.ErrUnsafeQuery, "validate sql", fmt.Errorf("forbidden SQL operation: %s", keyword))
		}
	}
	return nil
}
