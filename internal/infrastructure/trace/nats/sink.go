package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

// Sink publishes per-call token usage events to a NATS subject so an
// external collector can aggregate model spend. Publishing is best
// effort: a failed publish is logged and never fails the request that
// produced the usage.
type Sink struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
}

func New(url, subject string, logger *slog.Logger) (*Sink, error) {
	return NewWithOptions(url, subject, logger, Options{})
}

func NewWithOptions(url, subject string, logger *slog.Logger, options Options) (*Sink, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("ai-engineering-bootcamp"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Sink{conn: conn, subject: subject, logger: logger}, nil
}

type usageEvent struct {
	Operation        string    `json:"operation"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	RecordedAt       time.Time `json:"recorded_at"`
}

func (s *Sink) RecordUsage(_ context.Context, operation string, usage domain.TokenUsage) {
	event := usageEvent{
		Operation:        operation,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		RecordedAt:       time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("marshal usage event", "operation", operation, "error", err)
		return
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		s.logger.Warn("publish usage event", "operation", operation, "error", err)
	}
}

func (s *Sink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
