package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/service"
)

// UserHandler exposes the users collection and the nested books collection.
//
// Handlers stay thin on purpose: decode the body, call the service, map the
// result. Status-code decisions live in writeError; business rules live in
// the service. Nothing here touches the repository directly.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleWelcome serves the API landing line.
//
// HTTP: GET /
func (h *UserHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the Users and Books API"))
}

// HandleList returns all users.
//
// HTTP: GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.logger.Error("listing users", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleListBooks returns the user's embedded book list.
//
// HTTP: GET /users/{id}/books
func (h *UserHandler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	books, err := h.users.ListBooks(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// createUserRequest is the POST /users body. Seed books are optional and
// keep only their titles — IDs are reassigned server-side.
type createUserRequest struct {
	Name  string       `json:"name"`
	Books []model.Book `json:"books"`
}

// HandleCreate creates a user.
//
// HTTP: POST /users
// REQUEST BODY: {"name": "Alice", "books": [{"title": "Dune"}]}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid create-user JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Books)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type appendBookRequest struct {
	Title string `json:"title"`
}

// HandleAppendBook adds a book to a user's list and returns the created
// book with its assigned sequential ID.
//
// HTTP: POST /users/{id}/books
// REQUEST BODY: {"title": "Dune"}
func (h *UserHandler) HandleAppendBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req appendBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid append-book JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	book, err := h.users.AppendBook(r.Context(), id, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// HandleRemoveBook deletes one book and returns the remaining list.
//
// HTTP: DELETE /users/{userId}/books/{bookId}
//
// The book ID rides in the path, not the body — a DELETE body is legal but
// widely mishandled by proxies and clients.
func (h *UserHandler) HandleRemoveBook(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	bookID, err := strconv.Atoi(r.PathValue("bookId"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("bookId", "book id must be an integer"))
		return
	}

	remaining, err := h.users.RemoveBook(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remaining)
}
