// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/schoolhub/internal/database"
	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
	"codeberg.org/oliverandrich/schoolhub/internal/services/password"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB opens a migrated database in a per-test temp directory. A file
// database rather than :memory: so tests can exercise concurrent access
// through the pool.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, repository.New(db)
}

// CreateTestUser inserts a user with the given credentials.
func CreateTestUser(t *testing.T, repo *repository.Repository, email, plaintext string, verified bool) *models.User {
	t.Helper()

	hash, err := password.NewHasher().Hash(plaintext)
	require.NoError(t, err)

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.RoleStudent,
		Verified:     verified,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// SentMail records one notifier call.
type SentMail struct {
	To    string
	Token string
}

// NotifierRecorder is a Notifier double that records outgoing mail instead
// of sending it. Safe for concurrent use.
type NotifierRecorder struct {
	mu            sync.Mutex
	verifications []SentMail
	resets        []SentMail

	// FailWith makes every send return this error while still recording it.
	FailWith error
}

func (n *NotifierRecorder) SendVerification(_ context.Context, toEmail, tokenValue string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, SentMail{To: toEmail, Token: tokenValue})
	return n.FailWith
}

func (n *NotifierRecorder) SendPasswordReset(_ context.Context, toEmail, tokenValue string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, SentMail{To: toEmail, Token: tokenValue})
	return n.FailWith
}

// Verifications returns a copy of the recorded verification mails.
func (n *NotifierRecorder) Verifications() []SentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentMail(nil), n.verifications...)
}

// Resets returns a copy of the recorded reset mails.
func (n *NotifierRecorder) Resets() []SentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentMail(nil), n.resets...)
}

// LastVerification returns the most recent verification mail.
func (n *NotifierRecorder) LastVerification(t *testing.T) SentMail {
	t.Helper()
	mails := n.Verifications()
	require.NotEmpty(t, mails, "no verification mail recorded")
	return mails[len(mails)-1]
}

// LastReset returns the most recent password reset mail.
func (n *NotifierRecorder) LastReset(t *testing.T) SentMail {
	t.Helper()
	mails := n.Resets()
	require.NotEmpty(t, mails, "no reset mail recorded")
	return mails[len(mails)-1]
}
