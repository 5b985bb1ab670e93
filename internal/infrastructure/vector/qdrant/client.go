package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/resilience"
)

// Client performs similarity search over the product collection via the
// Qdrant HTTP API. Read-only and safe for concurrent use.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	guard      *resilience.Guard
}

type Option func(*Client)

func WithGuard(guard *resilience.Guard) Option {
	return func(c *Client) {
		c.guard = guard
	}
}

func New(baseURL, collection string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Search ranks points by similarity to queryVector. A non-empty ids slice
// restricts the search to points whose parent_asin payload matches one of
// the ids.
func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	ids []string,
	limit int,
) ([]domain.ScoredProduct, error) {
	if c.guard == nil {
		out, err := c.search(ctx, queryVector, ids, limit)
		return out, wrapTemporaryIfNeeded(err)
	}

	var out []domain.ScoredProduct
	err := c.guard.Execute(ctx, "qdrant.search", func(ctx context.Context) error {
		var callErr error
		out, callErr = c.search(ctx, queryVector, ids, limit)
		return callErr
	}, classifySearchError)
	return out, wrapTemporaryIfNeeded(err)
}

func (c *Client) search(
	ctx context.Context,
	queryVector []float32,
	ids []string,
	limit int,
) ([]domain.ScoredProduct, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(ids) > 0 {
		reqBody["filter"] = map[string]any{
			"must": []map[string]any{
				{
					"key": "parent_asin",
					"match": map[string]any{
						"any": ids,
					},
				},
			},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, formatSearchError(resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.ScoredProduct, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.ScoredProduct{
			ID:          payloadString(r.Payload, "parent_asin"),
			Description: payloadString(r.Payload, "description"),
			Rating:      payloadFloat(r.Payload, "average_rating"),
			Score:       r.Score,
		})
	}
	return out, nil
}

// HTTPStatusError is a non-2xx search response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "qdrant status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant search status: %s", e.Status)
	}
	return fmt.Sprintf("qdrant search status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

func formatSearchError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

func classifySearchError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{RecordFailure: false}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{RecordFailure: isTransientStatus(statusErr.StatusCode)}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapTemporaryIfNeeded marks breaker-open and backend-side failures as
// ErrTemporary; client mistakes (4xx such as an unknown collection) pass
// through unchanged.
func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "qdrant.search", err)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isTransientStatus(statusErr.StatusCode) {
			return domain.WrapError(domain.ErrTemporary, "qdrant.search", err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, "qdrant.search", err)
	}
	return err
}

func isTransientStatus(statusCode int) bool {
	switch {
	case statusCode >= 500:
		return true
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func payloadFloat(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		var f float64
		_, _ = fmt.Sscanf(v, "%g", &f)
		return f
	default:
		return 0
	}
}
