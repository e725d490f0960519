// Package server owns the HTTP listener lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"daisychain/internal/common/logging"
)

// Server wraps an http.Server with optional TLS and graceful shutdown.
type Server struct {
	srv     *http.Server
	tlsCert string
	tlsKey  string
	logger  logging.Logger
}

// New creates a server for the given handler. TLS is enabled when both cert
// and key paths are set.
func New(handler http.Handler, port, tlsCert, tlsKey string) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         ":" + port,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		tlsCert: tlsCert,
		tlsKey:  tlsKey,
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "server"}),
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	if s.tlsCert != "" && s.tlsKey != "" {
		s.srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		s.logger.Info("listening with TLS", logging.Field{Key: "addr", Value: s.srv.Addr})
		go func() {
			if err := s.srv.ListenAndServeTLS(s.tlsCert, s.tlsKey); err != nil && err != http.ErrServerClosed {
				s.logger.Error("server stopped unexpectedly", err)
			}
		}()
		return nil
	}

	s.logger.Info("listening", logging.Field{Key: "addr", Value: s.srv.Addr})
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped unexpectedly", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
