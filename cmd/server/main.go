// Package main is the entry point for the users-and-books API server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (from env vars, flags, or config files)
// 2. Create dependencies (logger, storage connections, etc.)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
// This separation makes the app testable and its components reusable.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/bookstore/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// slog.New creates a structured logger. slog.NewTextHandler outputs human-readable logs.
	// In production, you'd use LevelInfo or LevelWarn to reduce noise.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. LOAD .env ===
	// godotenv reads a .env file into the process environment so local
	// development doesn't need exported shell variables. A missing file is
	// fine — real environments set variables directly.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded configuration from .env")
	}

	// === 3. READ CONFIGURATION ===
	// os.Getenv returns "" if the variable isn't set, so we check and provide a default.
	port := 3000
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// STORE_BACKEND selects where users live:
	//   memory (default) — everything in process memory, lost on restart
	//   sqlite           — single-file database at DB_PATH
	//   mongo            — document store at MONGODB_URI
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = server.BackendMemory
	}

	// === 4. DATABASE PATH (sqlite backend) ===
	// DB_PATH env var allows overriding for production deployments.
	// Example: DB_PATH=/var/lib/bookstore/prod.db
	dbPath := "data/bookstore.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	if backend == server.BackendSQLite {
		// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. MONGO URI (mongo backend) ===
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	// === 6. AUTH CONFIGURATION ===
	// JWT_SECRET must be a long random string. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// If unset, auth is disabled: /register and /login are not registered
	// and the /users routes accept requests without a token.
	jwtSecret := os.Getenv("JWT_SECRET")

	// === 7. CREATE AND START THE SERVER ===
	cfg := server.Config{
		Port:      port,
		Backend:   backend,
		DBPath:    dbPath,
		MongoURI:  mongoURI,
		JWTSecret: jwtSecret,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
