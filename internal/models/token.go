// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Purpose tags a token with the single flow it is valid for.
// Tokens are never valid across purposes.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

// Token is a single-use, expiring credential token. Value is an opaque
// random string handed out exactly once at issuance; UserID is a weak
// reference into the users table and is never dereferenced by the token
// store itself.
type Token struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Value     string    `db:"token" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Purpose   Purpose   `db:"purpose" json:"purpose"`
	IssuedAt  time.Time `db:"issued_at" json:"issued_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the token is past its deadline at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
