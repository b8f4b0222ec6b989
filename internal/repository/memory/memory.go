// Package memory implements the user repository as a process-local,
// mutex-guarded map. It is the zero-infrastructure backend: state lives only
// as long as the process and is lost on restart.
//
// WHY KEEP IT AT ALL?
// 1. It is a first-class configuration (STORE_BACKEND=memory), matching the
//    original system's in-memory variant.
// 2. It doubles as the test double for the service layer — same code path
//    in tests and in the memory-backed deployment.
//
// A single sync.Mutex serializes every operation. Go's HTTP server handles
// requests on separate goroutines, so unlike a single-threaded event loop we
// cannot rely on the scheduler for exclusive access — the mutex is what
// makes each repository call atomic. The read-then-write window BETWEEN two
// repository calls still exists; that is what the version check covers.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// compile-time check that *Store implements repository.UserRepository
var _ repository.UserRepository = (*Store)(nil)

// Store holds users in insertion order. The map is an index into the slice
// by user ID; both are guarded by mu.
type Store struct {
	mu    sync.Mutex
	order []string
	users map[string]*model.User
}

func New() *Store {
	return &Store{
		users: make(map[string]*model.User),
	}
}

// Create assigns a fresh xid and stores a copy of the user.
// Registration emails are unique: a second user with the same email is
// rejected with a conflict, since login looks users up by email.
func (s *Store) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Email != "" {
		for _, id := range s.order {
			if s.users[id].Email == user.Email {
				return apperror.Conflict("user", user.Email)
			}
		}
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Books == nil {
		user.Books = []model.Book{}
	}

	// Store a copy so later caller-side mutations can't reach our state.
	stored := cloneUser(user)
	s.users[user.ID] = stored
	s.order = append(s.order, user.ID)
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return cloneUser(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if u := s.users[id]; u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (s *Store) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]model.User, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, *cloneUser(s.users[id]))
	}
	return result, nil
}

func (s *Store) AppendBook(_ context.Context, userID string, book model.Book, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if u.Version != expectedVersion {
		return apperror.Conflict("user", userID)
	}

	u.Books = append(u.Books, book)
	u.Version++
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ReplaceBooks(_ context.Context, userID string, books []model.Book, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	if u.Version != expectedVersion {
		return apperror.Conflict("user", userID)
	}

	u.Books = append([]model.Book{}, books...)
	u.Version++
	u.UpdatedAt = time.Now()
	return nil
}

// cloneUser deep-copies a user, including the books slice. Returning or
// storing copies is what keeps the mutex meaningful — no caller ever holds
// a pointer into the store's own state.
func cloneUser(u *model.User) *model.User {
	c := *u
	c.Books = append([]model.Book{}, u.Books...)
	return &c
}
