package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter serves the Prometheus registry over HTTP. Optional; only
// started when a listen address is configured.
type Exporter struct {
	server *http.Server
	logger *slog.Logger
}

// NewExporter creates an exporter bound to addr.
func NewExporter(addr string, logger *slog.Logger) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Exporter{
		server: &http.Server{Addr: addr, Handler: mux},
		logger: logger,
	}
}

// Start serves in the background until Stop.
func (e *Exporter) Start() {
	go func() {
		e.logger.Info("Metrics exporter listening", "addr", e.server.Addr)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("Metrics exporter failed", "error", err)
		}
	}()
}

// Stop shuts the exporter down.
func (e *Exporter) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		e.logger.Warn("Metrics exporter shutdown failed", "error", err)
	}
}
