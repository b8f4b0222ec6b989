// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (store)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
//
// The flows it owns:
//   - Register: presence-check name/email/password, hash the password,
//     store the user. The raw password never gets past this method.
//   - Login: look the user up by email, verify the password against the
//     stored hash, issue a signed token.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/auth"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// AuthService handles registration and login.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account with a hashed password and an empty book list.
//
// All three fields are required — the handler maps the validation error to
// 400. A duplicate email surfaces as a conflict from the repository (409):
// login is keyed by email, so two accounts must never share one.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	if name == "" {
		return nil, apperror.ValidationFailed("name", "All fields are required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "All fields are required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "All fields are required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password for %s: %w", email, err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Books:        []model.Book{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login verifies credentials and returns a signed bearer token whose subject
// is the user's ID.
//
// STATUS CONTRACT (matches the HTTP surface):
//   - missing field   → validation (400)
//   - unknown email   → not found (404)
//   - wrong password  → unauthorized (401)
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperror.ValidationFailed("credentials", "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("service/auth: login lookup for %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		// Deliberately not logging the password or the bcrypt error detail.
		s.logger.Warn("login failed", slog.String("email", email))
		return "", apperror.Unauthorized("Invalid password")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return token, nil
}
