// Package external exposes claudir's process-level HTTP surface: a
// liveness check and the Prometheus scrape endpoint, both on
// configuration.Config.Metrics.ListenPort. Generalized from the
// teacher's three-server Outsiders split (startup/system/application
// metrics) down to one server, since claudir has no system-vs-donation
// metrics distinction to keep separate.
package external

import (
	"context"
	"fmt"
	"net/http"

	"claudir/sources/configuration"
	"claudir/sources/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultListenPort = 9090

type Server struct {
	log *tracing.Logger
	srv *http.Server
}

func NewServer(cfg *configuration.Config, log *tracing.Logger) *Server {
	port := cfg.Metrics.ListenPort
	if port <= 0 {
		port = defaultListenPort
	}

	prometheus.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"claudir"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		log: log,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

func (s *Server) Start() {
	s.log.I("metrics/health server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.E("metrics/health server failed", tracing.InnerError, err)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
