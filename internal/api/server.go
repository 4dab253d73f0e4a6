package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/events"
	"github.com/unsaid-app/attune/internal/rules"
	"github.com/unsaid-app/attune/internal/signal"
	"github.com/unsaid-app/attune/internal/suggest"
	"github.com/unsaid-app/attune/internal/tone"
)

// Deps carries the wired core components into the HTTP surface.
type Deps struct {
	Rules      *rules.Config
	Extractor  *signal.Extractor
	Classifier *tone.Classifier
	Engine     *attachment.Engine
	Generator  *suggest.Generator
	Events     *events.Client // nil disables analytics
	Logger     *slog.Logger
}

type Server struct {
	router       *chi.Mux
	port         int
	deps         Deps
	storeTimeout time.Duration
}

func NewServer(port int, storeTimeout time.Duration, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:       router,
		port:         port,
		deps:         deps,
		storeTimeout: storeTimeout,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/attune/status", s.status)

	router.Post("/tone", s.classifyTone)
	router.Post("/suggestions", s.suggestions)

	router.Route("/communicator", func(r chi.Router) {
		r.Use(requireUserID)
		r.Post("/observe", s.observe)
		r.Get("/profile", s.profile)
		r.Post("/reset", s.reset)
		r.Get("/export", s.export)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.deps.Logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "attune",
		"status":  "serving",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
