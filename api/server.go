package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/config"
	"github.com/railradar/locotrack/model"
)

// LiveFetcher is the on-demand collection path the API delegates to.
// *collector.Collector implements it.
type LiveFetcher interface {
	FetchLive(ctx context.Context, locoNo int) (*model.Observation, error)
	LastCycleEpoch() int64
}

// StoreReader is the query surface of the observation store.
// *store.Store implements it.
type StoreReader interface {
	LatestByLoco(locoNo int) (*model.Observation, error)
	LatestByTrain(trainNo int) (*model.Observation, error)
	History(locoNo int, limit int) ([]model.Observation, error)
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	live       LiveFetcher
	store      StoreReader
}

// NewServer builds the router and server for the given port.
func NewServer(cfg config.ServerConfig, live LiveFetcher, store StoreReader) *Server {
	s := &Server{live: live, store: store}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/fois/loco/{locoID}", s.handleLiveLoco)
	r.Get("/api/loco/history/{locoID}", s.handleLocoHistory)
	r.Get("/api/search/loco/{locoID}", s.handleSearchLoco)
	r.Get("/api/search/train/{trainID}", s.handleSearchTrain)
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
	log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
