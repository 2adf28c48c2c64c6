package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_AddsScheme(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080", "http://localhost:8080"},
		{"https://scope.example.com", "https://scope.example.com"},
	}
	for _, tt := range tests {
		if got := NewClient(tt.in).BaseURL(); got != tt.want {
			t.Errorf("NewClient(%q).BaseURL() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseResponse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"OK","message":"Success","data":{"count":2}}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Get(context.Background(), "/api/sensors")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var data struct {
		Count int `json:"count"`
	}
	if err := ParseResponse(resp, &data); err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if data.Count != 2 {
		t.Fatalf("count = %d, want 2", data.Count)
	}
}

func TestParseResponse_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"LS-WIN-4040","message":"window is empty"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Get(context.Background(), "/api/sensors/latest")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	err = ParseResponse(resp, nil)
	if err == nil {
		t.Fatal("expected error from 404 envelope")
	}
	if got := err.Error(); got != "[LS-WIN-4040] window is empty" {
		t.Fatalf("error = %q", got)
	}
}

func TestParseResponse_NonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Get(context.Background(), "/api/sensors")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := ParseResponse(resp, nil); err == nil {
		t.Fatal("expected error from non-JSON 504")
	}
}
