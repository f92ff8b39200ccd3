package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/quest-ledger/internal/config"
	"github.com/terra-clan/quest-ledger/internal/health"
	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// TokenVerifier resolves a bearer token to the principal it was issued for
type TokenVerifier interface {
	Verify(token string) (models.Principal, error)
}

// EventHistory serves committed events after a sequence number
type EventHistory interface {
	Since(ctx context.Context, after uint64, limit int) ([]models.Event, error)
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	ledger         *ledger.Ledger
	checks         *health.Registry
	stream         http.Handler
	history        EventHistory
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server. stream and history may be nil,
// in which case the event routes answer 503.
func NewServer(
	cfg config.ServerConfig,
	l *ledger.Ledger,
	verifier TokenVerifier,
	checks *health.Registry,
	stream http.Handler,
	history EventHistory,
) *Server {
	if checks == nil {
		checks = health.NewRegistry()
	}

	s := &Server{
		config:         cfg,
		ledger:         l,
		checks:         checks,
		stream:         stream,
		history:        history,
		authMiddleware: NewAuthMiddleware(verifier),
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

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Websocket streams are long-lived; keep them out of the request timeout
		r.Get("/events", s.handleEventStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.authMiddleware.Authenticate)

			r.Get("/events/history", s.handleEventHistory)

			r.Route("/platform", func(r chi.Router) {
				r.Get("/", s.handleGetPlatform)
				r.Post("/initialize", s.handleInitialize)
			})

			r.Route("/quests", func(r chi.Router) {
				r.Get("/", s.handleListQuests)
				r.With(RequireCaller).Post("/", s.handleCreateQuest)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetQuest)
					r.With(RequireCaller).Post("/cancel", s.handleCancelQuest)
					r.With(RequireCaller).Post("/complete", s.handleCompleteQuest)
					r.Get("/completions/{user}", s.handleHasCompleted)
				})
			})

			r.Route("/users/{user}", func(r chi.Router) {
				r.Get("/completions", s.handleUserCompletions)
				r.Get("/badges", s.handleUserBadges)
			})

			r.Get("/leaderboard", s.handleLeaderboard)

			r.Route("/badges", func(r chi.Router) {
				r.Get("/", s.handleTotalBadges)
				r.With(RequireCaller).Post("/", s.handleMintBadge)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetBadge)
					r.Get("/owner", s.handleOwnerOf)
					r.With(RequireCaller).Post("/transfer", s.handleTransferBadge)
				})
			})

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", s.handlePendingPayouts)
				r.With(RequireCaller).Post("/ack", s.handleAckPayout)
			})
		})
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
