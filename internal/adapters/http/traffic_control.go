package httpadapter

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitMiddleware applies a process-wide token bucket to all routes.
// Requests that cannot obtain a token immediately are rejected with 429
// rather than queued, so slow LLM calls never pile up behind the limiter.
func rateLimitMiddleware(next http.Handler, rps float64, burst int) http.Handler {
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, retry later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
