// Package api serves a read-only HTTP browser over dataset stores. It lists
// stores, pages through records, steps to the next or previous record of a
// key and summarizes a store's schema and float-field ranges.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"k8s.io/klog/v2"

	"github.com/ssargent/datumkit/pkg/metrics"
	"github.com/ssargent/datumkit/pkg/storage"
)

// Server holds the API server state
type Server struct {
	stores  map[string]storage.OrderedStore
	names   []string
	config  ServerConfig
	metrics *metrics.Metrics
}

// NewServer creates a new API server over stores, keyed by the name clients
// use in URLs. The stores must stay open for the server's lifetime.
func NewServer(stores map[string]storage.OrderedStore, config ServerConfig, m *metrics.Metrics) *Server {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Server{stores: stores, names: names, config: config, metrics: m}
}

// Handler returns the router with all routes configured
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(apiKeyMiddleware(s.config.APIKey))
		}

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/stores", s.metrics.InstrumentHandler("GET", "/api/v1/stores", s.handleListStores))
		r.Get("/stores/{store}/stats", s.metrics.InstrumentHandler("GET", "/api/v1/stores/{store}/stats", s.handleStats))
		r.Get("/stores/{store}/records", s.metrics.InstrumentHandler("GET", "/api/v1/stores/{store}/records", s.handleListRecords))
		r.Get("/stores/{store}/records/{key}", s.metrics.InstrumentHandler("GET", "/api/v1/stores/{store}/records/{key}", s.handleGetRecord))
	})

	return r
}

// StartServer serves s until ctx is cancelled
func StartServer(ctx context.Context, s *Server) error {
	addr := fmt.Sprintf("%s:%d", s.config.Bind, s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("Serving %d stores on http://%s/api/v1", len(s.names), addr)
		klog.Infof("Metrics available at: http://%s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		klog.Info("Shutting down record browser")
		return srv.Shutdown(shutdownCtx)
	}
}
