package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arcoapp/arco-admin/internal/config"
	"github.com/arcoapp/arco-admin/internal/handler"
	"github.com/arcoapp/arco-admin/internal/openapi"
	"github.com/arcoapp/arco-admin/internal/server/middleware"
	"github.com/arcoapp/arco-admin/internal/service"
	"github.com/arcoapp/arco-admin/internal/session"
)

// chatPath is left out of the OpenAPI document when no assistant is set.
const chatPath = "/api/chatbot"

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	AuthPerMinute   int   // per-IP limit on the sign-in endpoints; 0 disables
	ChatPerMinute   int   // per-IP limit on the assistant; 0 disables
	Dev             bool  // development mode: internal error detail in responses
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"http://localhost:3000"},
		MaxBodySize:     1 << 20, // 1MB
		AuthPerMinute:   30,
		ChatPerMinute:   20,
		Version:         "dev",
	}
}

// Deps are the services the routes are wired to.
type Deps struct {
	Store    *config.Store
	Auth     *service.AuthService
	Users    *service.UserService
	Feedback *service.FeedbackService
	Sessions *session.Manager

	// Chat is the budgeting assistant; /api/chatbot is mounted only when set.
	Chat *service.ChatService
}

// Server is the top-level HTTP server. It owns the Chi router and the
// http.Server; the store and session backend belong to the caller.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()
	dev := s.cfg.Dev

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, "/healthz", "/readyz"))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	authH := handler.NewAuthHandler(s.deps.Auth, s.deps.Users, s.deps.Sessions, s.logger, dev)
	usersH := handler.NewUsersHandler(s.deps.Users, s.logger, dev)
	feedbackH := handler.NewFeedbackHandler(s.deps.Feedback, s.logger, dev)
	sysH := handler.NewSystemHandler(s.deps.Feedback, s.readinessChecks(), s.cfg.Version, s.logger, dev)
	docInfo := openapi.Info{
		Version:    s.cfg.Version,
		CookieName: s.deps.Sessions.Cookie.Name,
	}
	if s.deps.Chat == nil {
		docInfo.Omit = []string{chatPath}
	}
	openapiH := handler.NewOpenAPIHandler(docInfo)

	// --- Health checks and document (no auth required) ---
	r.Get("/healthz", sysH.Healthz)
	r.Get("/readyz", sysH.Readyz)
	r.Get("/openapi.json", openapiH.ServeSpec)

	r.Route("/api", func(r chi.Router) {
		// Sign-in endpoints carry their own session state.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.AuthPerMinute))
			r.Post("/admin/auth", authH.Admin)
			r.Post("/mobile/auth", authH.Mobile)
		})

		r.Post("/feedback", feedbackH.Submit)

		if s.deps.Chat != nil {
			chatH := handler.NewChatHandler(s.deps.Chat, s.logger, dev)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(s.cfg.ChatPerMinute))
				r.Use(middleware.Authenticate(s.deps.Auth, s.deps.Sessions))
				r.Post("/chatbot", chatH.Chat)
			})
		}

		// Dashboard APIs require an admin.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.deps.Auth, s.deps.Sessions))
			r.Use(middleware.RequireAdmin(s.accounts()))

			r.Post("/admin/users", usersH.Handle)
			r.Post("/admin/feedback", feedbackH.Admin)
			r.Get("/admin/stats", sysH.Stats)
		})
	})

	s.router = r
}

// accounts returns the store for the admin re-check, or nil when the server
// runs without one.
func (s *Server) accounts() middleware.Accounts {
	if s.deps.Store == nil {
		return nil
	}
	return s.deps.Store
}

func (s *Server) readinessChecks() map[string]handler.Pinger {
	checks := map[string]handler.Pinger{}
	if s.deps.Store != nil {
		checks["database"] = s.deps.Store
	}
	if s.deps.Sessions != nil && s.deps.Sessions.Store != nil {
		checks["sessions"] = s.deps.Sessions.Store
	}
	return checks
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String(), "dev", s.cfg.Dev)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
