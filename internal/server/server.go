// Package server wires the application together: storage backend, services,
// handlers, routes, and the HTTP server lifecycle.
//
// This is the composition root — the one place that knows which concrete
// repository backs the repository interface and whether authentication is
// enabled. Everything below it receives dependencies, never constructs them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/handler"
	"github.com/sakif/bookstore/internal/middleware"
	"github.com/sakif/bookstore/internal/repository"
	memoryRepo "github.com/sakif/bookstore/internal/repository/memory"
	mongoRepo "github.com/sakif/bookstore/internal/repository/mongo"
	sqliteRepo "github.com/sakif/bookstore/internal/repository/sqlite"
	"github.com/sakif/bookstore/internal/service"
)

// Storage backend names accepted in Config.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config holds everything the server needs to start.
//
// JWTSecret doubles as the auth switch: when empty, /register and /login are
// not mounted and the /users routes are open — the unauthenticated variant.
// When set, all /users routes except user creation require a bearer token.
type Config struct {
	Port      int
	Backend   string // memory | sqlite | mongo
	DBPath    string // sqlite only
	MongoURI  string // mongo only
	JWTSecret string // empty = authentication disabled
}

// Server owns the router, the configured storage backend, and the function
// that releases it on shutdown.
type Server struct {
	router     *chi.Mux
	config     Config
	logger     *slog.Logger
	tokens     *auth.TokenService // nil when auth is disabled
	closeStore func(context.Context) error
}

// New builds the full dependency chain:
//
//	backend (memory/sqlite/mongo) → UserService / AuthService → handlers → routes
//
// Each layer only receives what it needs — services get the repository
// interface, handlers get services, the router gets handlers.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	repo, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     logger,
		closeStore: closeStore,
	}

	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			_ = closeStore(context.Background())
			return nil, fmt.Errorf("configuring tokens: %w", err)
		}
		s.tokens = tokens
	} else {
		logger.Warn("JWT_SECRET not set — authentication is disabled, /users routes are open")
	}

	s.setupRoutes(repo)
	return s, nil
}

// openStore constructs the configured repository backend and its closer.
func openStore(cfg Config) (repository.UserRepository, func(context.Context) error, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return memoryRepo.New(), func(context.Context) error { return nil }, nil

	case BackendSQLite:
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, func(context.Context) error { return db.Close() }, nil

	case BackendMongo:
		db, err := mongoRepo.New(context.Background(), cfg.MongoURI)
		if err != nil {
			return nil, nil, fmt.Errorf("opening mongo store: %w", err)
		}
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// setupRoutes configures middleware and the route table.
//
// ROUTE STRUCTURE ([auth] only when JWT_SECRET is set):
//
//	GET    /                                → welcome text
//	POST   /users                           → create user
//	POST   /register                        → register (auth variant only)
//	POST   /login                           → login    (auth variant only)
//	GET    /users                    [auth] → list users
//	GET    /users/{id}               [auth] → get user
//	GET    /users/{id}/books         [auth] → list user's books
//	POST   /users/{id}/books         [auth] → append book
//	DELETE /users/{userId}/books/{bookId} [auth] → remove book
func (s *Server) setupRoutes(repo repository.UserRepository) {
	// Global middleware — order matters: request ID and real IP first so
	// the logger and recoverer see them.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	userService := service.NewUserService(repo, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	s.router.Get("/", userHandler.HandleWelcome)
	s.router.Post("/users", userHandler.HandleCreate)

	if s.tokens != nil {
		authService := service.NewAuthService(repo, s.tokens, auth.NewPasswordService(), s.logger)
		authHandler := handler.NewAuthHandler(authService, s.logger)
		s.router.Post("/register", authHandler.HandleRegister)
		s.router.Post("/login", authHandler.HandleLogin)
	}

	s.router.Group(func(r chi.Router) {
		if s.tokens != nil {
			r.Use(auth.RequireAuth(s.tokens))
		}
		r.Get("/users", userHandler.HandleList)
		r.Get("/users/{id}", userHandler.HandleGet)
		r.Get("/users/{id}/books", userHandler.HandleListBooks)
		r.Post("/users/{id}/books", userHandler.HandleAppendBook)
		r.Delete("/users/{userId}/books/{bookId}", userHandler.HandleRemoveBook)
	})
}

// Router exposes the mux — tests drive it directly through httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, release the storage backend.
func (s *Server) Start() error {
	defer func() {
		if err := s.closeStore(context.Background()); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("backend", s.config.Backend),
			slog.Bool("auth", s.tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
