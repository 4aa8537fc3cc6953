// Package web is the server-rendered HTTP surface: login, registration and
// the todo pages, plus /healthz. Prometheus metrics are served by
// MetricsServer on a separate listener.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
)

type HTTPServer struct {
	address         string
	logger          logging.Logger
	users           *services.UserService
	todos           *services.TodoService
	gate            *auth.SessionGate
	pages           *pages
	secureCookie    bool
	shutdownTimeout time.Duration
}

// Options carries the settings the HTTP layer needs from config.
type Options struct {
	Address         string
	SecureCookie    bool
	ShutdownTimeout time.Duration
}

func NewHTTPServer(opts Options, l logging.Logger, us *services.UserService, ts *services.TodoService, gate *auth.SessionGate) (*HTTPServer, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &HTTPServer{
		address:         opts.Address,
		logger:          l.With("module", "http_server"),
		users:           us,
		todos:           ts,
		gate:            gate,
		pages:           p,
		secureCookie:    opts.SecureCookie,
		shutdownTimeout: opts.ShutdownTimeout,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *HTTPServer) serve(ctx context.Context, listen net.Listener) error {
	return serveUntilDone(ctx, listen, s.Router(), s.logger, s.shutdownTimeout)
}

// serveUntilDone runs handler on listen and shuts it down gracefully once
// ctx is cancelled.
func serveUntilDone(ctx context.Context, listen net.Listener, handler http.Handler, logger logging.Logger, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
