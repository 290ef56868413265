// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
	"codeberg.org/oliverandrich/schoolhub/internal/services/token"
)

// SignUpParams holds the parameters for account creation.
type SignUpParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.Role
}

// SignUp creates an unverified account, issues a 24h verification token and
// hands it to the notifier. A notifier or token failure is logged but does
// not roll the account back; verification can be retried through
// ResendVerification.
func (s *Service) SignUp(ctx context.Context, params SignUpParams) (*models.User, error) {
	params.Email = NormalizeEmail(params.Email)

	if err := s.validateSignUp(params); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        params.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		Role:         params.Role,
		Verified:     false,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("signup_success", "user_id", user.ID, "email", user.Email, "role", user.Role)

	s.sendVerification(ctx, user)
	return user, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. It reports success regardless of whether the email exists or is
// already verified, so the endpoint cannot be used to probe for accounts.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Verified {
		return nil
	}

	s.sendVerification(ctx, user)
	return nil
}

// VerifyEmail consumes a verification token and marks its subject verified.
// A token whose subject no longer exists counts as invalid, not as a fault.
func (s *Service) VerifyEmail(ctx context.Context, tokenValue string) error {
	userID, err := s.tokens.Consume(ctx, tokenValue, models.PurposeVerify)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	if err := s.repo.SetUserVerified(ctx, userID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to set verified flag: %w", err)
	}

	slog.Info("email_verified", "user_id", userID)
	return nil
}

// RequestPasswordReset issues a 1h reset token and mails the reset link.
// It reports success for unknown emails too, simply skipping the issue and
// notify steps, so the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	tokenValue, err := s.tokens.Issue(ctx, user.ID, models.PurposeReset, ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, tokenValue); err != nil {
		slog.Error("reset_email_failed", "user_id", user.ID, "error", err)
	}

	slog.Info("password_reset_requested", "user_id", user.ID)
	return nil
}

// CompletePasswordReset consumes a reset token and stores the new password.
// The new password is validated before the token is consumed, so a rejected
// password does not burn the link.
func (s *Service) CompletePasswordReset(ctx context.Context, tokenValue, newPlaintext string) error {
	if result := s.validator.Validate(newPlaintext); !result.Valid {
		return newPasswordValidationError(result)
	}

	userID, err := s.tokens.Consume(ctx, tokenValue, models.PurposeReset)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	hash, err := s.hasher.Hash(newPlaintext)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_reset_completed", "user_id", userID)
	return nil
}

// sendVerification issues a verification token and mails the link.
// Failures are logged, never propagated: the account already exists and the
// user can request a new link.
func (s *Service) sendVerification(ctx context.Context, user *models.User) {
	tokenValue, err := s.tokens.Issue(ctx, user.ID, models.PurposeVerify, VerifyTokenTTL)
	if err != nil {
		slog.Error("verification_token_failed", "user_id", user.ID, "error", err)
		return
	}

	if err := s.notifier.SendVerification(ctx, user.Email, tokenValue); err != nil {
		slog.Error("verification_email_failed", "user_id", user.ID, "error", err)
	}
}
