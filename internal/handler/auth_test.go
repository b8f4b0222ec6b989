package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/handler"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository/memory"
	"github.com/sakif/bookstore/internal/service"
)

func newAuthHandler(t *testing.T) (*handler.AuthHandler, *auth.TokenService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	assert.NoError(t, err)
	svc := service.NewAuthService(memory.New(), tokens, auth.NewPasswordServiceWithCost(4), logger)
	return handler.NewAuthHandler(svc, logger), tokens
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleRegister(t *testing.T) {
	h, _ := newAuthHandler(t)

	t.Run("valid registration", func(t *testing.T) {
		rr := postJSON(t, h.HandleRegister, "/register",
			`{"name":"Alice","email":"alice@example.com","password":"s3cret"}`)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var user model.User
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.Equal(t, "Alice", user.Name)
		assert.NotEmpty(t, user.ID)

		// The hash must never appear in the response body.
		assert.NotContains(t, rr.Body.String(), "password")
		assert.NotContains(t, rr.Body.String(), "$2")
	})

	t.Run("missing field", func(t *testing.T) {
		rr := postJSON(t, h.HandleRegister, "/register",
			`{"name":"Alice","email":"alice2@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rr := postJSON(t, h.HandleRegister, "/register",
			`{"name":"Mallory","email":"alice@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	h, tokens := newAuthHandler(t)

	// Register Alice first
	rr := postJSON(t, h.HandleRegister, "/register",
		`{"name":"Alice","email":"alice@example.com","password":"s3cret"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var alice model.User
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&alice))

	t.Run("correct credentials return a valid token", func(t *testing.T) {
		rr := postJSON(t, h.HandleLogin, "/login",
			`{"email":"alice@example.com","password":"s3cret"}`)

		assert.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Token string `json:"token"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		assert.NotEmpty(t, body.Token)

		userID, err := tokens.Validate(body.Token)
		assert.NoError(t, err)
		assert.Equal(t, alice.ID, userID)
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := postJSON(t, h.HandleLogin, "/login",
			`{"email":"nobody@example.com","password":"pw"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := postJSON(t, h.HandleLogin, "/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := postJSON(t, h.HandleLogin, "/login", `{"email":"alice@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
