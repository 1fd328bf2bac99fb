package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hongminglow/guest-account/internal/auth"
	"github.com/hongminglow/guest-account/internal/config"
	"github.com/hongminglow/guest-account/internal/http/handlers"
	"github.com/hongminglow/guest-account/internal/http/respond"
	"github.com/hongminglow/guest-account/internal/logging"
	"github.com/hongminglow/guest-account/internal/middleware"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, svc handlers.SignInService, db handlers.Pinger, logger logging.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewHandler(cfg, svc, db, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// NewHandler builds the full middleware chain and route table.
func NewHandler(cfg config.Config, svc handlers.SignInService, db handlers.Pinger, logger logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Nop()
	}

	var sessions handlers.SessionIssuer
	if cfg.SessionsEnabled() {
		sessions = auth.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer, cfg.SessionTTL)
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Status(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Status(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	handlers.NewHealthHandler(time.Now(), db).Register(router)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Handler)
	handlers.NewGuestHandler(svc, sessions).Register(api)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, middleware.Recover(logger, router)))
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
