// Package sqlite implements the user repository on SQLite.
//
// WHY SQLITE FOR A "DOCUMENT STORE"?
// The domain stores one self-contained record per user with the books
// embedded inside it. We keep that shape in SQL: the books column holds the
// JSON-encoded array, so every book operation stays a single-row write —
// exactly the single-document atomicity the rest of the code assumes.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
package sqlite

import (
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers itself with database/sql as a
	// driver named "sqlite". The import exists only for that side effect.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.UserRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/bookstore.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
//
// sql.Open does not actually connect — it creates a pool manager. Ping
// forces an immediate connection so a bad path fails here, not on the
// first query.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// default journaling locks the whole file per write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Wherever New() is called, defer Close()
// right after the error check.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the users table.
//
// One row per user; books is the JSON-encoded embedded array and version is
// the optimistic-concurrency counter every books write is conditioned on.
//
// The email unique index is partial: rows without an email (plain POST /users
// accounts) all store '' and must not collide with each other. Only
// registered accounts, which log in by email, need uniqueness.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			books         TEXT NOT NULL DEFAULT '[]',
			version       INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(email) WHERE email <> '';
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	return nil
}
