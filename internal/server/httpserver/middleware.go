// Package httpserver provides the HTTP server for Linescope.
package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	xrate "golang.org/x/time/rate"

	"github.com/linescope/linescope-go/internal/telemetry/metric"
	"github.com/linescope/linescope-go/pkg/cmap"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				entropy := ulid.Monotonic(rand.Reader, 0)
				if id, err := ulid.New(ulid.Timestamp(time.Now()), entropy); err == nil {
					requestID = "req-" + id.String()
				} else {
					requestID = "req-unknown"
				}
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rateBucket is one client's token bucket plus its last activity.
type rateBucket struct {
	limiter  *xrate.Limiter
	lastSeen atomic.Int64 // unix seconds
}

// RateLimit limits requests per client IP using a token bucket.
// Buckets idle for an hour are dropped on the next sweep.
func RateLimit(requestsPerSecond float64, burst int) Middleware {
	buckets := cmap.New[*rateBucket]()
	var lastSweep atomic.Int64
	lastSweep.Store(time.Now().Unix())

	if burst < 1 {
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			now := time.Now()

			b, _ := buckets.GetOrSet(ip, &rateBucket{
				limiter: xrate.NewLimiter(xrate.Limit(requestsPerSecond), burst),
			})
			b.lastSeen.Store(now.Unix())

			if sweep := lastSweep.Load(); now.Unix()-sweep > 3600 &&
				lastSweep.CompareAndSwap(sweep, now.Unix()) {
				buckets.Range(func(key string, stale *rateBucket) bool {
					if now.Unix()-stale.lastSeen.Load() > 3600 {
						buckets.Delete(key)
					}
					return true
				})
			}

			if !b.limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writePlainError(w, http.StatusTooManyRequests, "LS-SYS-4290", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recover converts handler panics into 500 responses.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(ContextKeyRequestID).(string)
					logger.Error("panic recovered",
						"request_id", requestID,
						"error", err,
						"path", r.URL.Path,
					)
					writePlainError(w, http.StatusInternalServerError, "LS-SYS-5000", "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Measure records request count and latency per route.
func Measure(reg *metric.Registry, route string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			statusClass := strconv.Itoa(rw.statusCode/100) + "xx"
			reg.RequestsTotal.WithLabelValues(route, statusClass).Inc()
			reg.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

// responseWriter captures the status code for metrics and logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streaming handlers
// keep working behind the metrics middleware.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// writePlainError writes a bare error object, used by middleware that
// fails before the handler envelope is reachable.
func writePlainError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Use net.SplitHostPort to correctly handle IPv6 addresses like [::1]:8080
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
