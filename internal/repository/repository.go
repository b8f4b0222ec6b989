// Package repository defines the storage contract for users and their
// embedded book lists.
//
// Three implementations live in subpackages — memory, sqlite, and mongo —
// all satisfying the same interface so the rest of the application never
// knows (or cares) which backend is configured.
package repository

import (
	"context"

	"github.com/sakif/bookstore/internal/model"
)

// UserRepository is the storage contract for the single logical "users"
// collection. One record per user; books are embedded in that record.
//
// CONDITIONAL WRITES:
// AppendBook and ReplaceBooks are the only mutations of the embedded book
// list, and both are conditional: they take the Version the caller observed
// when it read the user, succeed only if the stored Version still matches,
// and bump the Version by one. A mismatch returns apperror.ErrConflict.
//
// Without the version check, two interleaved read-modify-write sequences on
// the same user silently overwrite each other (the classic "read count, write
// count+1" race of the original design). With it, the losing writer gets a
// conflict it can retry — see the service layer for the retry loop.
type UserRepository interface {
	// Create inserts a new user. The implementation assigns User.ID,
	// Version, and the timestamps.
	Create(ctx context.Context, user *model.User) error

	// GetByID returns the user or apperror.NotFound.
	GetByID(ctx context.Context, id string) (*model.User, error)

	// GetByEmail returns the user registered under the email, or
	// apperror.NotFound. Used by login.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// List returns all users. Insertion order where the backend can
	// provide it.
	List(ctx context.Context) ([]model.User, error)

	// AppendBook pushes one book onto the user's list if the stored
	// version equals expectedVersion. apperror.NotFound if the user is
	// gone, apperror.ErrConflict on a version mismatch.
	AppendBook(ctx context.Context, userID string, book model.Book, expectedVersion int64) error

	// ReplaceBooks overwrites the user's whole book list under the same
	// version condition. Used by book removal, which splices the list
	// in the service and persists the remainder.
	ReplaceBooks(ctx context.Context, userID string, books []model.Book, expectedVersion int64) error
}
