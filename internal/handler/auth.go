package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/service"
)

// AuthHandler manages registration and login.
//
// The token travels in the response body and comes back on later requests
// in the Authorization header — there is no cookie and no server-side
// session; the signed token is the whole session.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /register
// REQUEST BODY: {"name": "Alice", "email": "alice@example.com", "password": "..."}
//
// The created user is returned WITHOUT the password hash — model.User
// serializes it as json:"-" so it cannot leak here or anywhere else.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// HandleLogin verifies credentials and returns a bearer token.
//
// HTTP: POST /login
// RESPONSE: 200 {"token": "<jwt>"} — or 400 missing fields, 404 unknown
// email, 401 wrong password (the writeError mapping of the service errors).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
