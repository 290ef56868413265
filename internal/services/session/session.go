// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session manages signed cookie sessions for logged-in users.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/config"
	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/services/auth"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

// Session is the payload stored in the signed cookie.
type Session struct {
	ID       string      `json:"id"`
	UserID   int64       `json:"user_id"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	IssuedAt time.Time   `json:"issued_at"`
}

// Manager encodes and decodes session cookies.
type Manager struct {
	codec      *securecookie.SecureCookie
	cookieName string
	maxAge     int
	secure     bool
}

// NewManager creates a session manager from the session config. With an
// empty hash key a random one is generated, which invalidates all sessions
// on restart; fine for development, logged as a warning.
func NewManager(cfg *config.SessionConfig, secure bool) (*Manager, error) {
	hashKey, err := keyFromHex(cfg.HashKey, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid session hash key: %w", err)
	}
	if hashKey == nil {
		hashKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil {
			return nil, fmt.Errorf("failed to generate session hash key")
		}
		slog.Warn("session hash key not configured, sessions will not survive restarts")
	}

	blockKey, err := keyFromHex(cfg.BlockKey, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid session block key: %w", err)
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(cfg.MaxAge)

	return &Manager{
		codec:      codec,
		cookieName: cfg.CookieName,
		maxAge:     cfg.MaxAge,
		secure:     secure,
	}, nil
}

// Issue creates a new session for the identity and sets the cookie.
func (m *Manager) Issue(c echo.Context, identity *auth.Identity) error {
	sess := Session{
		ID:       uuid.NewString(),
		UserID:   identity.ID,
		Email:    identity.Email,
		Role:     identity.Role,
		IssuedAt: time.Now().UTC(),
	}

	encoded, err := m.codec.Encode(m.cookieName, sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get returns the session from the request cookie, or nil if there is no
// valid one. Tampered or expired cookies count as absent.
func (m *Manager) Get(c echo.Context) *Session {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil {
		return nil
	}

	var sess Session
	if err := m.codec.Decode(m.cookieName, cookie.Value, &sess); err != nil {
		return nil
	}
	return &sess
}

// Clear removes the session cookie.
func (m *Manager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// keyFromHex decodes a hex key and checks its length. An empty input
// returns nil without error.
func keyFromHex(value string, wantLen int) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, err
	}
	if len(key) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(key))
	}
	return key, nil
}

// GenerateKey returns a fresh random key as hex, for provisioning configs.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
