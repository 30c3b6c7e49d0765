// Package opsserver exposes operational visibility only: health, Prometheus
// metrics, and queue depth. It carries no target-mutation routes and is not
// the target-ingress API or looking-glass UI (both out of scope, spec.md §1).
package opsserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"netwatch/internal/metrics"
	"netwatch/internal/queue"
	"netwatch/internal/store"
)

const dbPingTimeout = 2 * time.Second

// Server is the internal ops HTTP surface.
type Server struct {
	repo    *store.Repository
	queue   *queue.Queue
	metrics *metrics.Metrics
	router  *mux.Router
}

func New(repo *store.Repository, q *queue.Queue, m *metrics.Metrics) *Server {
	s := &Server{repo: repo, queue: q, metrics: m, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/debug/queue", s.handleDebugQueue).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// queueDepthPollInterval is how often Run samples the queue depth into the
// metrics.QueueDepth gauge.
const queueDepthPollInterval = 5 * time.Second

// Run periodically refreshes the QueueDepth gauge until ctx is cancelled.
// The /debug/queue route answers on demand; this keeps /metrics current
// for anyone scraping it instead of polling the debug route.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(queueDepthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := s.queue.Depth(ctx)
			if err != nil {
				log.Printf("[ops] queue depth poll failed: %v", err)
				continue
			}
			s.metrics.QueueDepth.Set(float64(depth))
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dbPingTimeout)
	defer cancel()

	if err := s.repo.Pool().Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleDebugQueue(w http.ResponseWriter, r *http.Request) {
	depth, err := s.queue.Depth(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"depth": depth})
}
