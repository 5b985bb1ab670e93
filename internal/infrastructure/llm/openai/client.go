package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible API for text generation and
// embeddings. Safe for concurrent use; stateless apart from the optional
// breaker guard.
type Client struct {
	api        *openai.Client
	genModel   string
	embedModel string
	guard      *resilience.Guard
}

type Config struct {
	APIKey     string
	BaseURL    string
	GenModel   string
	EmbedModel string
	Guard      *resilience.Guard
}

func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		api:        openai.NewClientWithConfig(clientCfg),
		genModel:   cfg.GenModel,
		embedModel: cfg.EmbedModel,
		guard:      cfg.Guard,
	}
}

// Generate sends the instructions as the system message and the input, if
// any, as the user message, and returns the completion with token usage.
func (c *Client) Generate(ctx context.Context, instructions, input string) (domain.Generation, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: instructions},
	}
	if input != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: input,
		})
	}

	var resp openai.ChatCompletionResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.genModel,
			Messages: messages,
		})
		return err
	}
	if err := c.execute(ctx, "llm.generate", call); err != nil {
		return domain.Generation{}, wrapTemporaryIfNeeded("llm.generate", fmt.Errorf("openai generate: %w", describeAPIError(err)))
	}
	if len(resp.Choices) == 0 {
		return domain.Generation{}, fmt.Errorf("openai generate: empty choices")
	}

	return domain.Generation{
		Text: strings.TrimSpace(resp.Choices[0].Message.Content),
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var resp openai.EmbeddingResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model:          openai.EmbeddingModel(c.embedModel),
			Input:          []string{text},
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
		return err
	}
	if err := c.execute(ctx, "llm.embed", call); err != nil {
		return nil, wrapTemporaryIfNeeded("llm.embed", fmt.Errorf("openai embed: %w", describeAPIError(err)))
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.guard == nil {
		return call(ctx)
	}
	return c.guard.Execute(ctx, operation, call, classifyAPIError)
}

// classifyAPIError records backend-side failures against the breaker and
// leaves caller mistakes (4xx other than 408/429) out of its statistics.
func classifyAPIError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{RecordFailure: false}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ErrorClassification{RecordFailure: isBackendStatus(apiErr.HTTPStatusCode)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.ErrorClassification{RecordFailure: isBackendStatus(reqErr.HTTPStatusCode)}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapTemporaryIfNeeded marks breaker-open and backend-class failures as
// ErrTemporary so the HTTP adapter can answer 503 instead of 500. Caller
// mistakes (plain 4xx) and cancellations pass through unchanged.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) || isTransientAPIError(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isTransientAPIError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return isBackendStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return isBackendStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isBackendStatus(statusCode int) bool {
	switch {
	case statusCode >= 500:
		return true
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// describeAPIError keeps the provider's status and message in the chain.
func describeAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("api status %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	return err
}
