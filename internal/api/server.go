// v1
// internal/api/server.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server owns the HTTP listener.
type Server struct {
	HTTP *http.Server
	Log  *slog.Logger
}

func NewServer(addr string, readTimeout, writeTimeout time.Duration, handler http.Handler, log *slog.Logger) *Server {
	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{HTTP: hs, Log: log}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.Log.Info("http_server_starting", slog.String("addr", s.HTTP.Addr))
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.Log.Info("http_server_stopping")
	return s.HTTP.Shutdown(ctx)
}
