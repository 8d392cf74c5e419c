// Package api serves the JSON API, the chart endpoint, and the
// Prometheus metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aramyan/yerevanair/internal/ingest"
	"github.com/aramyan/yerevanair/internal/scrape"
	"github.com/aramyan/yerevanair/internal/store"
)

type Server struct {
	store   *store.Store
	loader  *ingest.Loader
	scraper *scrape.Client
	port    string
}

func NewServer(store *store.Store, loader *ingest.Loader, scraper *scrape.Client, port string) *Server {
	return &Server{
		store:   store,
		loader:  loader,
		scraper: scraper,
		port:    port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/current", s.handleCurrent)
	mux.HandleFunc("/api/sensors", s.handleSensors)
	mux.HandleFunc("/api/daily", s.handleDaily)
	mux.HandleFunc("/api/range", s.handleRange)
	mux.HandleFunc("/chart/daily", s.handleDailyChart)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
