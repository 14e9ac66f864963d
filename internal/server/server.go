// Package server wires the RSS/health/metrics read path (§4.9), generalized
// from the teacher's chi + middleware + cors wiring with the GraphQL/email
// surface removed — this system serves one public document, not an admin API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/geraldfingburke/dailydigest/internal/metrics"
	"github.com/geraldfingburke/dailydigest/internal/rssgen"
)

// Config holds HTTP listen and edge-caching settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	EdgeCacheSeconds int
	SWRSeconds      int
}

// New builds the HTTP server: /daily-digest.xml, /health, /metrics.
func New(cfg Config, db *sql.DB, feed *rssgen.Generator, log zerolog.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.Get("/daily-digest.xml", metrics.ObserveHTTP("daily_digest_xml", feedHandler(cfg, feed, log)))
	r.Get("/health", metrics.ObserveHTTP("health", healthHandler(db)))
	r.Handle("/metrics", metrics.Handler())

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func feedHandler(cfg Config, feed *rssgen.Generator, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := feed.Build(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to build rss feed")
			http.Error(w, "failed to build feed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", cfg.EdgeCacheSeconds, cfg.SWRSeconds))
		w.Write(doc)
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// Shutdown gracefully stops srv, bounded by cfg.ShutdownTimeout.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
