// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements credential authentication and the account
// lifecycle: sign-up, email verification, and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
	"codeberg.org/oliverandrich/schoolhub/internal/services/password"
	"codeberg.org/oliverandrich/schoolhub/internal/services/token"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified is returned when the password matched but the email
	// address has not been verified yet.
	ErrNotVerified = errors.New("email address not verified")
	// ErrDuplicateEmail is returned when signing up with a taken email.
	ErrDuplicateEmail = repository.ErrDuplicateEmail
	// ErrInvalidOrExpiredToken covers absent, expired, consumed and
	// wrong-purpose tokens alike.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
)

const (
	// VerifyTokenTTL is how long email verification links stay valid.
	VerifyTokenTTL = 24 * time.Hour
	// ResetTokenTTL is how long password reset links stay valid.
	ResetTokenTTL = time.Hour
)

// Notifier delivers account emails. Delivery is best-effort: the flows that
// trigger it treat failures as reportable, not fatal.
type Notifier interface {
	SendVerification(ctx context.Context, toEmail, tokenValue string) error
	SendPasswordReset(ctx context.Context, toEmail, tokenValue string) error
}

// Identity is the minimal view of an authenticated user handed to callers.
// It never carries the password hash.
type Identity struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// Service composes the password hasher, token store, user repository and
// notifier into the login and account lifecycle flows.
type Service struct {
	repo      *repository.Repository
	tokens    *token.Store
	notifier  Notifier
	hasher    *password.Hasher
	validator *password.Validator
}

// NewService creates a new auth service.
func NewService(repo *repository.Repository, tokens *token.Store, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		tokens:    tokens,
		notifier:  notifier,
		hasher:    password.NewHasher(),
		validator: password.DefaultValidator(),
	}
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// inserts go through this, so an address can never exist twice in
// different casings.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates an email/password pair. Unknown emails and wrong
// passwords are rejected identically, including the hashing work, so the
// response shape and timing do not reveal which accounts exist. A correct
// password on an unverified account is rejected with ErrNotVerified.
func (s *Service) Login(ctx context.Context, email, plaintext string) (*Identity, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(plaintext)
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		slog.Warn("login_failed", "email", email, "reason", "not_verified")
		return nil, ErrNotVerified
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return &Identity{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// ChangePassword changes a user's password after checking the current one.
// Outstanding reset tokens are revoked: they were issued against the old
// credential.
func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPlaintext, newPlaintext string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(currentPlaintext, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if result := s.validator.Validate(newPlaintext); !result.Valid {
		return newPasswordValidationError(result)
	}

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if _, err := s.tokens.RevokeAll(ctx, userID, models.PurposeReset); err != nil {
		slog.Error("failed to revoke reset tokens", "user_id", userID, "error", err)
	}

	slog.Info("password_changed", "user_id", userID)
	return nil
}
