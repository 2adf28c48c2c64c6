package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Server wraps http.Server with the settings the API needs. The write
// timeout stays unset because /stream.mjpg holds its response open for
// the life of the viewer.
type Server struct {
	srv *http.Server
}

// New returns a server for addr serving handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting new connections and drains in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
