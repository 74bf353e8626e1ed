// Package web exposes the engine's query surface over HTTP for external
// command layers: leaderboard slices, rank lookups, pairwise comparison,
// alias claims, and game registration.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/ranking"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	router *chi.Mux
	engine *ranking.Engine
	log    *logrus.Logger

	// maxSliceLines caps how many leaderboard lines one request may ask
	// for.
	maxSliceLines int
}

// Config holds server configuration.
type Config struct {
	MaxSliceLines int
}

// NewServer creates a new HTTP server around the engine.
func NewServer(engine *ranking.Engine, log *logrus.Logger, cfg Config) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.MaxSliceLines <= 0 {
		cfg.MaxSliceLines = 30
	}

	s := &Server{
		router:        chi.NewRouter(),
		engine:        engine,
		log:           log,
		maxSliceLines: cfg.MaxSliceLines,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.handleHealth)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/players/{name}/rank", s.handleRank)
	r.Get("/compare", s.handleCompare)
	r.Post("/players/{id}/aliases", s.handleClaim)
	r.Post("/games", s.handleRegisterGame)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
