package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linescope/linescope-go/internal/telemetry/logger"
	"github.com/linescope/linescope-go/internal/telemetry/metric"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestRequestID_Generated(t *testing.T) {
	var captured string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !strings.HasPrefix(captured, "req-") {
		t.Errorf("request id = %q", captured)
	}
	if rec.Header().Get("X-Request-ID") != captured {
		t.Errorf("header = %q, context = %q", rec.Header().Get("X-Request-ID"), captured)
	}
}

func TestRequestID_PreservesIncoming(t *testing.T) {
	h := RequestID()(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-upstream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "req-upstream" {
		t.Errorf("header = %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	h := RateLimit(1, 2)(okHandler())

	statuses := make([]int, 4)
	for i := range statuses {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses[i] = rec.Code
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests = %v, want first two OK", statuses)
	}
	if statuses[3] != http.StatusTooManyRequests {
		t.Fatalf("statuses = %v, want 429 after burst", statuses)
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	h := RateLimit(1, 1)(okHandler())

	for i, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %d status = %d, buckets should be per IP", i, rec.Code)
		}
	}
}

func TestRecover_ConvertsPanic(t *testing.T) {
	log := logger.Slog(logger.Default())
	h := Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != "LS-SYS-5000" {
		t.Errorf("error code header = %q", rec.Header().Get("X-Error-Code"))
	}
}

func TestMeasure_RecordsRouteAndStatus(t *testing.T) {
	reg := metric.NewRegistry()
	h := Measure(reg, "/api/sensors")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/sensors", nil))

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	want := `linescope_http_requests_total{route="/api/sensors",status="4xx"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("exposition missing %q", want)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"remote addr", "192.168.1.5:1234", "", "", "192.168.1.5"},
		{"ipv6 remote", "[::1]:8080", "", "", "::1"},
		{"forwarded for", "10.0.0.1:1", "203.0.113.7, 10.0.0.1", "", "203.0.113.7"},
		{"real ip", "10.0.0.1:1", "", "203.0.113.9", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
