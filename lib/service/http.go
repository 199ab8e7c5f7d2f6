// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// HTTPServer serves an http.Handler on a TCP listener until its
// context is cancelled, then drains in-flight requests.
type HTTPServer struct {
	address string
	handler http.Handler
	logger  *slog.Logger

	shutdownTimeout time.Duration
	writeTimeout    time.Duration

	// ready is closed once the listener is bound.
	ready chan struct{}

	// addr is the resolved listen address, valid after ready closes.
	addr net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address (":8080", "127.0.0.1:0").
	// Required.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	// ShutdownTimeout bounds the drain after cancellation.
	// Default: 10s
	ShutdownTimeout time.Duration

	// WriteTimeout bounds writing one response. Whole-chunk responses
	// can be hundreds of megabytes, so the default is generous.
	// Default: 10m
	WriteTimeout time.Duration

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// NewHTTPServer creates a server for config. It panics on a missing
// required field. Call Serve to start accepting connections.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	if config.Address == "" {
		panic("service.HTTPServer: Address is required")
	}
	if config.Handler == nil {
		panic("service.HTTPServer: Handler is required")
	}
	if config.Logger == nil {
		panic("service.HTTPServer: Logger is required")
	}

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	writeTimeout := config.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Minute
	}

	return &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		logger:          config.Logger,
		shutdownTimeout: shutdownTimeout,
		writeTimeout:    writeTimeout,
		ready:           make(chan struct{}),
	}
}

// Ready returns a channel closed once the server accepts connections.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready()
// is closed; with port 0 it carries the assigned port.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve blocks until ctx is cancelled or the listener fails. On
// cancellation it stops accepting connections and waits up to the
// shutdown timeout for active requests.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
