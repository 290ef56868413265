// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository owns all SQL against the schoolhub database.
package repository

import (
	"errors"

	"github.com/vinovest/sqlx"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an email address is already taken.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrDuplicateToken is returned when a token value collides with an
	// existing row. Callers retry with fresh randomness.
	ErrDuplicateToken = errors.New("token value already exists")
)

// Repository wraps the sqlx connection pool for database operations.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying sqlx.DB for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
