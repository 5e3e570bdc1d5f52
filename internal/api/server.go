package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/trivia-engine/internal/cache"
	"github.com/terra-clan/trivia-engine/internal/config"
	"github.com/terra-clan/trivia-engine/internal/health"
	"github.com/terra-clan/trivia-engine/internal/quiz"
	"github.com/terra-clan/trivia-engine/internal/storage"
)

// Dependencies are the collaborators of the API server. Locker, Events
// and Health are optional.
type Dependencies struct {
	Engine  *quiz.Engine
	Catalog storage.QuestionRepository
	Locker  cache.Locker
	Events  cache.Publisher
	Health  *health.Registry
}

// Server represents the HTTP API server
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	engine  *quiz.Engine
	catalog storage.QuestionRepository
	locker  cache.Locker
	events  cache.Publisher
	health  *health.Registry
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	s := &Server{
		config:  cfg,
		engine:  deps.Engine,
		catalog: deps.Catalog,
		locker:  deps.Locker,
		events:  deps.Events,
		health:  deps.Health,
	}

	if s.locker == nil {
		s.locker = cache.NewLocalLocker()
	}
	if s.events == nil {
		s.events = cache.NopBus{}
	}
	if s.health == nil {
		s.health = health.NewRegistry()
	}
	if s.config.RequestTimeout <= 0 {
		s.config.RequestTimeout = 60 * time.Second
	}

	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleWelcome)

	// Health check (outside versioned API)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.loadSession).Get("/", s.handleGetSession)
				r.With(s.loadSession).Get("/next", s.handleNextQuestion)
				r.With(s.lockSession, s.loadSession).Post("/answers", s.handleSubmitAnswer)
				r.With(s.loadSession).Get("/score", s.handleScore)
				r.With(s.lockSession, s.loadSession).Post("/reset", s.handleResetSession)
				r.With(s.loadSession).Get("/play", s.handlePlayWS)
			})
		})
	})

	// Routes of the first public version of the game API
	r.Get("/start-game", s.handleCreateSession)
	r.Route("/game/{id}", func(r chi.Router) {
		r.With(s.loadSession).Get("/next-question", s.handleNextQuestion)
		r.With(s.lockSession, s.loadSession).Post("/answer", s.handleSubmitAnswer)
		r.With(s.loadSession).Get("/score", s.handleScore)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
