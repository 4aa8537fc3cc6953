package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/logging"
	"github.com/dmitrijs2005/gotodo/internal/server/metrics"
	"github.com/gorilla/mux"
)

// MetricsServer serves /metrics on its own address, normally loopback, so
// the scrape endpoint is not reachable through the public listener.
type MetricsServer struct {
	address         string
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewMetricsServer(address string, l logging.Logger, shutdownTimeout time.Duration) *MetricsServer {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &MetricsServer{
		address:         address,
		logger:          l.With("module", "metrics_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

func (s *MetricsServer) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is cancelled.
func (s *MetricsServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *MetricsServer) serve(ctx context.Context, listen net.Listener) error {
	return serveUntilDone(ctx, listen, s.Router(), s.logger, s.shutdownTimeout)
}
