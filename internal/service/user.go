// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer)  → validates, enforces rules, orchestrates
//	Repository (Data layer)   → reads/writes the configured store
//
// The service receives repository.UserRepository (an interface), never a
// concrete backend — the same code runs against memory, SQLite, and Mongo,
// and tests inject a mock.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// maxConflictRetries bounds how often a book mutation re-reads and re-writes
// after losing a version race. Each retry recomputes the next book ID from
// a fresh snapshot, so the winner's write is never clobbered.
const maxConflictRetries = 3

// UserService handles business logic for users and their book lists.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService. The caller decides which repository
// implementation to inject (memory, sqlite, mongo, or a test mock).
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and stores a new user with an optional seed book list.
//
// Seed books keep only their titles: IDs are reassigned 1..n so the
// len(books)+1 assignment scheme starts from a consistent state regardless
// of what the client sent.
func (s *UserService) Create(ctx context.Context, name string, books []model.Book) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	seeded := make([]model.Book, len(books))
	for i, b := range books {
		seeded[i] = model.Book{ID: i + 1, Title: b.Title}
	}

	user := &model.User{
		Name:  name,
		Books: seeded,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user %q: %w", name, err)
	}

	s.logger.Info("user created",
		slog.String("userID", user.ID),
		slog.String("name", user.Name),
	)
	return user, nil
}

// Get returns the user with the given ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id is required")
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// ListBooks returns the embedded book list of the given user.
func (s *UserService) ListBooks(ctx context.Context, userID string) ([]model.Book, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Books, nil
}

// AppendBook adds a book to the user's list and returns it.
//
// THE ID-ASSIGNMENT WINDOW:
// The next book ID is computed from a read snapshot (len(books)+1) and the
// write is a separate call — the classic read-then-write window. The
// repository's version condition closes it: if another writer commits in
// between, our conditional push conflicts instead of landing a duplicate ID,
// and we retry from a fresh read.
func (s *UserService) AppendBook(ctx context.Context, userID, title string) (*model.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}

	for attempt := 0; ; attempt++ {
		user, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}

		book := model.Book{ID: user.NextBookID(), Title: title}
		err = s.repo.AppendBook(ctx, userID, book, user.Version)
		if err == nil {
			s.logger.Info("book appended",
				slog.String("userID", userID),
				slog.Int("bookID", book.ID),
				slog.String("title", book.Title),
			)
			return &book, nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= maxConflictRetries {
			return nil, fmt.Errorf("appending book for user %s: %w", userID, err)
		}

		s.logger.Warn("book append lost version race, retrying",
			slog.String("userID", userID),
			slog.Int("attempt", attempt+1),
		)
	}
}

// RemoveBook deletes the book with the given ID from the user's list and
// returns the remaining books.
//
// Removal is a full replacement of the embedded array: linear scan for the
// matching ID, splice it out, persist the remainder. The write carries the
// version of the snapshot the splice was computed from — a concurrent append
// or removal forces a retry rather than being silently dropped.
func (s *UserService) RemoveBook(ctx context.Context, userID string, bookID int) ([]model.Book, error) {
	for attempt := 0; ; attempt++ {
		user, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}

		index := -1
		for i, b := range user.Books {
			if b.ID == bookID {
				index = i
				break
			}
		}
		if index == -1 {
			return nil, apperror.NotFound("book", strconv.Itoa(bookID))
		}

		remaining := make([]model.Book, 0, len(user.Books)-1)
		remaining = append(remaining, user.Books[:index]...)
		remaining = append(remaining, user.Books[index+1:]...)

		err = s.repo.ReplaceBooks(ctx, userID, remaining, user.Version)
		if err == nil {
			s.logger.Info("book removed",
				slog.String("userID", userID),
				slog.Int("bookID", bookID),
			)
			return remaining, nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= maxConflictRetries {
			return nil, fmt.Errorf("removing book %d for user %s: %w", bookID, userID, err)
		}

		s.logger.Warn("book removal lost version race, retrying",
			slog.String("userID", userID),
			slog.Int("attempt", attempt+1),
		)
	}
}
