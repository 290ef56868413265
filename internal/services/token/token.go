// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and consumes single-use, purpose-typed, expiring
// tokens backed by the tokens table.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
)

const (
	// tokenBytes is the entropy per token. 32 random bytes encode to a
	// 43-character URL-safe string.
	tokenBytes = 32
	// maxIssueRetries bounds the retry loop on token value collisions.
	// A collision requires two identical 256-bit strings; one retry is
	// already more than the lifetime of the deployment needs.
	maxIssueRetries = 3
)

// ErrNotFound is reported for tokens that are absent, expired, already
// consumed, or of the wrong purpose. Callers cannot tell these cases apart.
var ErrNotFound = errors.New("token not found")

// Store issues, looks up, and invalidates tokens.
type Store struct {
	repo *repository.Repository
}

// NewStore creates a token store on top of the repository.
func NewStore(repo *repository.Repository) *Store {
	return &Store{repo: repo}
}

// Issue creates a new token for (userID, purpose) with the given ttl and
// returns the raw token value. Any previous token for the same pair is
// invalidated in the same transaction, so at most one live token exists per
// (user, purpose) at any instant.
func (s *Store) Issue(ctx context.Context, userID int64, purpose models.Purpose, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	for attempt := 0; attempt < maxIssueRetries; attempt++ {
		value, err := generate()
		if err != nil {
			return "", err
		}

		tok := &models.Token{
			Value:     value,
			UserID:    userID,
			Purpose:   purpose,
			IssuedAt:  now,
			ExpiresAt: now.Add(ttl),
		}

		err = s.repo.ReplaceToken(ctx, tok)
		if errors.Is(err, repository.ErrDuplicateToken) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("issue token: %w", err)
		}
		return value, nil
	}

	return "", fmt.Errorf("issue token: %d consecutive value collisions", maxIssueRetries)
}

// Consume atomically removes the token and returns its subject's user id.
// Exactly one concurrent caller can succeed for a given token; everyone
// else, and every later caller, gets ErrNotFound. Absent, expired and
// wrong-purpose tokens are indistinguishable, and an expired or
// wrong-purpose row is removed by the lookup.
func (s *Store) Consume(ctx context.Context, value string, purpose models.Purpose) (int64, error) {
	tok, err := s.repo.ConsumeToken(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("consume token: %w", err)
	}

	if tok.Purpose != purpose || tok.Expired(time.Now().UTC()) {
		return 0, ErrNotFound
	}

	return tok.UserID, nil
}

// Peek looks a token up without consuming it. An expired row is removed
// lazily and reported as ErrNotFound.
func (s *Store) Peek(ctx context.Context, value string, purpose models.Purpose) (*models.Token, error) {
	tok, err := s.repo.GetToken(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("peek token: %w", err)
	}

	if tok.Expired(time.Now().UTC()) {
		if delErr := s.repo.DeleteToken(ctx, value); delErr != nil {
			slog.Warn("failed to remove expired token", "error", delErr)
		}
		return nil, ErrNotFound
	}
	if tok.Purpose != purpose {
		return nil, ErrNotFound
	}

	return tok, nil
}

// RevokeAll deletes all tokens for a user, optionally scoped to one purpose
// (empty purpose means all). Returns how many of them were still live.
func (s *Store) RevokeAll(ctx context.Context, userID int64, purpose models.Purpose) (int64, error) {
	expiries, err := s.repo.DeleteUserTokens(ctx, userID, purpose)
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}

	now := time.Now().UTC()
	var live int64
	for _, expiresAt := range expiries {
		if now.Before(expiresAt) {
			live++
		}
	}
	return live, nil
}

// Sweep removes expired token rows. Expiry is enforced lazily on every
// read, so sweeping only reclaims space.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, time.Now().UTC())
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.Sweep(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("token sweep failed", "error", err)
					}
					continue
				}
				if count > 0 {
					slog.Debug("token sweep", "removed", count)
				}
			}
		}
	}()
}

// generate returns a fresh random URL-safe token value.
func generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
