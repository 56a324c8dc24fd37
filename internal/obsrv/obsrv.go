// Package obsrv exposes operational metrics and a liveness endpoint,
// grounded on the teacher's server.go HTTP setup but serving
// /metrics and /healthz instead of the application API.
package obsrv

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

var (
	IngestRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chameleon_ingest_rows_total",
		Help: "Rows upserted per ingestion stage.",
	}, []string{"dataset"})

	IngestRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chameleon_ingest_runs_total",
		Help: "Ingestion stage completions, labeled by terminal status.",
	}, []string{"dataset", "status"})

	DetectLinksTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chameleon_detect_links",
		Help: "Carrier links scored by the most recent detection run, before the meaningful-link persistence cutoff.",
	})

	DetectClustersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chameleon_detect_clusters",
		Help: "Carrier clusters produced by the most recent detection run.",
	})

	DetectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chameleon_detect_duration_seconds",
		Help:    "Wall-clock duration of a full detection run.",
		Buckets: prometheus.DefBuckets,
	})
)

// Server serves /healthz and /metrics on addr until Shutdown is called.
type Server struct {
	http *http.Server
}

// NewServer builds the router the way the teacher assembles its main router:
// one mux.Router, explicit routes, a stdlib http.Server wrapping it.
func NewServer(addr string) *Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return &Server{http: &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}}
}

// Start listens in the background and logs an error only if the listener
// itself fails; a later graceful Shutdown is expected to produce
// http.ErrServerClosed, which is not an error worth logging.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("obsrv: server stopped: %v", err)
		}
	}()
	log.Infof("obsrv: metrics server listening at %s", s.http.Addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.http.Close()
}
