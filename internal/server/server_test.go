package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/bookstore/internal/server"
)

// These tests drive the fully wired router through httptest — real routing,
// real middleware, memory backend. This is the closest thing to running the
// binary without opening a port.

func newTestServer(t *testing.T, jwtSecret string) *server.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	srv, err := server.New(server.Config{
		Port:      0,
		Backend:   server.BackendMemory,
		JWTSecret: jwtSecret,
	}, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServerWithoutAuth(t *testing.T) {
	srv := newTestServer(t, "")
	h := srv.Router()

	rec := doJSON(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")

	// Auth routes are not mounted in this variant.
	rec = doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"name": "a", "email": "a@b.c", "password": "pw",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Every /users route is open.
	rec = doJSON(t, h, http.MethodPost, "/users", "", map[string]any{"name": "Alice"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, h, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alice")
}

func TestServerBookFlow(t *testing.T) {
	srv := newTestServer(t, "")
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/users", "", map[string]any{"name": "Bob"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var user struct {
		ID string `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))

	// Two appends get sequential IDs.
	rec = doJSON(t, h, http.MethodPost, "/users/"+user.ID+"/books", "", map[string]string{"title": "Book One"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/users/"+user.ID+"/books", "", map[string]string{"title": "Book Two"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/users/"+user.ID+"/books", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":1`)
	assert.Contains(t, rec.Body.String(), `"id":2`)

	rec = doJSON(t, h, http.MethodDelete, "/users/"+user.ID+"/books/1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Book One")
	assert.Contains(t, rec.Body.String(), "Book Two")

	rec = doJSON(t, h, http.MethodDelete, "/users/"+user.ID+"/books/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerWithAuth(t *testing.T) {
	srv := newTestServer(t, "integration-test-secret-key")
	h := srv.Router()

	// Welcome and user creation stay open.
	rec := doJSON(t, h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/users", "", map[string]any{"name": "Open"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Reads and book writes require a token.
	rec = doJSON(t, h, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access Denied")

	rec = doJSON(t, h, http.MethodGet, "/users", "not-a-real-token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid Token")

	// Register, log in, use the token.
	rec = doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"name": "Carol", "email": "carol@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret123")

	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{
		"email": "carol@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.Token)

	rec = doJSON(t, h, http.MethodGet, "/users", login.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Carol")

	// Duplicate registration conflicts.
	rec = doJSON(t, h, http.MethodPost, "/register", "", map[string]string{
		"name": "Carol2", "email": "carol@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Wrong password is rejected.
	rec = doJSON(t, h, http.MethodPost, "/login", "", map[string]string{
		"email": "carol@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerUnknownBackend(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	_, err := server.New(server.Config{Backend: "cassandra"}, logger)
	if err == nil {
		t.Fatal("New() with unknown backend should fail")
	}
	assert.Contains(t, fmt.Sprint(err), "cassandra")
}
