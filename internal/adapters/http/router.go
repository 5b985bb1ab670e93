package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/ports"
	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	semantic   ports.SemanticPipeline
	structured ports.StructuredPipeline
	chat       ports.ChatService
	metrics    *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
}

type RouterOption func(*Router)

func WithTrafficControl(rps float64, burst int) RouterOption {
	return func(rt *Router) {
		rt.rateLimitRPS = rps
		rt.rateLimitBurst = burst
	}
}

func NewRouter(
	semantic ports.SemanticPipeline,
	structured ports.StructuredPipeline,
	chat ports.ChatService,
	m *metrics.HTTPServerMetrics,
	options ...RouterOption,
) *Router {
	rt := &Router{
		semantic:   semantic,
		structured: structured,
		chat:       chat,
		metrics:    m,
	}
	for _, opt := range options {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/rag/query", rt.queryRAG)
	mux.HandleFunc("/v1/sql/query", rt.querySQL)
	mux.HandleFunc("/v1/chat/query", rt.queryChat)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func decodeQuery(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return req, false
	}
	return req, true
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.semantic.Answer(r.Context(), req.Query, req.TopK)
	rt.observePipeline("rag", err, start)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": requestIDFromContext(r.Context()),
		"answer":     result.Answer,
		"sources":    result.Sources,
	})
}

func (rt *Router) querySQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.structured.Answer(r.Context(), req.Query)
	rt.observePipeline("sql", err, start)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil && strings.Contains(result.Err, domain.ErrUnsafeQuery.Error()) {
		rt.metrics.RecordUnsafeSQLRejected(serviceName)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":   requestIDFromContext(r.Context()),
		"answer":       result.Answer,
		"sql_query":    result.SQLQuery,
		"result_count": result.ResultCount,
	})
}

func (rt *Router) queryChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	req, ok := decodeQuery(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := rt.chat.Chat(r.Context(), req.Query)
	rt.observePipeline("chat", err, start)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordIntent(serviceName, string(result.Intent))
		if result.CandidateCount != nil {
			rt.metrics.RecordCandidateSet(serviceName, *result.CandidateCount)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": requestIDFromContext(r.Context()),
		"answer":     result.Answer,
		"intent":     string(result.Intent),
		"filters":    result.Filters,
	})
}

func (rt *Router) observePipeline(pipeline string, err error, start time.Time) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordPipeline(serviceName, pipeline, err, time.Since(start))
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{
		"request_id": requestIDFromContext(r.Context()),
		"error":      err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
