package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	coreapp "tokentrace/internal/core/app"
	"tokentrace/internal/core/config"
	"tokentrace/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ObservabilityServer serves /health and, when enabled, /metrics for
// watch-mode deployments.
type ObservabilityServer struct {
	addr          string
	healthService *coreapp.HealthService
	metrics       bool
	server        *http.Server
}

func NewObservabilityServer(addr string, healthService *coreapp.HealthService, metrics bool) *ObservabilityServer {
	return &ObservabilityServer{
		addr:          addr,
		healthService: healthService,
		metrics:       metrics,
	}
}

func (s *ObservabilityServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := s.healthService.Check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	slog.Info("observability server starting", "addr", s.addr, "metrics", s.metrics)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// startObservabilityServer starts the HTTP endpoint when -serve or the
// observability config asks for it. Returns nil when neither does.
func startObservabilityServer(opts cliOptions, cfg *config.Config, app *coreapp.App, store ports.HistoryStore) (*ObservabilityServer, error) {
	if !opts.serve && !cfg.Observability.Enabled {
		return nil, nil
	}

	health := coreapp.NewHealthService(app)
	if store != nil {
		health.SetHistoryStore(store)
	}

	metricsOn := opts.serve || cfg.Observability.EnableMetrics
	server := NewObservabilityServer(fmt.Sprintf(":%d", cfg.Observability.Port), health, metricsOn)
	if err := server.Start(context.Background()); err != nil {
		return nil, err
	}
	return server, nil
}
