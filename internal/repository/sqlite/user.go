package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user row. The ID is generated here (xid — sortable,
// URL-safe, and usable unchanged as a Mongo _id should the data move).
//
// Duplicate registration emails surface as a UNIQUE constraint violation,
// which we translate to a conflict — the caller maps it to 409.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Books == nil {
		user.Books = []model.Book{}
	}

	booksJSON, err := json.Marshal(user.Books)
	if err != nil {
		return fmt.Errorf("sqlite: encoding books for user %s: %w", user.ID, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, books, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(booksJSON),
		user.Version,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}

	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by their registration email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getBy(ctx, "email", email)
}

// getBy is the shared single-row lookup. column is always one of the two
// literals above, never caller input.
func (db *DB) getBy(ctx context.Context, column, value string) (*model.User, error) {
	var (
		u         model.User
		booksJSON string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, books, version, created_at, updated_at
		 FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&booksJSON,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %q: %w", column, value, err)
	}

	if err := json.Unmarshal([]byte(booksJSON), &u.Books); err != nil {
		return nil, fmt.Errorf("sqlite: decoding books for user %s: %w", u.ID, err)
	}
	if u.Books == nil {
		u.Books = []model.Book{}
	}

	return &u, nil
}

// List returns all users in insertion order (rowid order — xids are
// time-sortable too, but rowid is what the table actually appends by).
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, password_hash, books, version, created_at, updated_at
		 FROM users ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u         model.User
			booksJSON string
		)
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&booksJSON,
			&u.Version,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		if err := json.Unmarshal([]byte(booksJSON), &u.Books); err != nil {
			return nil, fmt.Errorf("sqlite: decoding books for user %s: %w", u.ID, err)
		}
		if u.Books == nil {
			u.Books = []model.Book{}
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// AppendBook pushes one book onto the user's embedded array.
//
// SQLite's JSON1 json_insert with the '$[#]' path appends to the array
// inside the UPDATE itself, so the push is atomic at the row level — the
// Go side never holds the array between read and write here. The version
// condition still applies: the push belongs to the snapshot the caller
// computed the book ID from, and must fail if that snapshot is stale.
func (db *DB) AppendBook(ctx context.Context, userID string, book model.Book, expectedVersion int64) error {
	bookJSON, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("sqlite: encoding book for user %s: %w", userID, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET books = json_insert(books, '$[#]', json(?)),
		     version = version + 1,
		     updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(bookJSON),
		time.Now(),
		userID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("sqlite: appending book for user %s: %w", userID, err)
	}

	return db.checkConditionalWrite(ctx, res, userID)
}

// ReplaceBooks overwrites the whole embedded array under the version
// condition. This is the book-removal write path: the service splices the
// list it read and persists the remainder as a full replacement.
func (db *DB) ReplaceBooks(ctx context.Context, userID string, books []model.Book, expectedVersion int64) error {
	if books == nil {
		books = []model.Book{}
	}
	booksJSON, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("sqlite: encoding books for user %s: %w", userID, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET books = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(booksJSON),
		time.Now(),
		userID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("sqlite: replacing books for user %s: %w", userID, err)
	}

	return db.checkConditionalWrite(ctx, res, userID)
}

// checkConditionalWrite disambiguates a conditional UPDATE that matched no
// rows: either the user is gone (NotFound) or the version moved under the
// caller (Conflict, retryable).
func (db *DB) checkConditionalWrite(ctx context.Context, res sql.Result, userID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected for user %s: %w", userID, err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: checking user %s exists: %w", userID, err)
	}
	if !exists {
		return apperror.NotFound("user", userID)
	}
	return apperror.Conflict("user", userID)
}
