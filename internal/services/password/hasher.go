// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password provides one-way password hashing and policy validation.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash gives Verify-shaped work for accounts that do not exist,
// so lookups cannot be distinguished by timing.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Hasher derives and verifies bcrypt password hashes. The encoded output is
// self-describing (algorithm, cost and salt travel with the hash), so the
// cost can be raised later without invalidating stored hashes.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the default bcrypt cost.
func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash derives a salted hash from the plaintext. Each call uses a fresh
// random salt, so hashing the same password twice yields different strings.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. The comparison
// is constant-time. A malformed stored value verifies as false, never as a
// match and never as an error.
func (h *Hasher) Verify(plaintext, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}

// VerifyDummy burns the same amount of work as a real verification and
// always fails. Called on lookups for unknown accounts.
func (h *Hasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}
