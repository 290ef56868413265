// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
)

const tokenCols = `id, token, user_id, purpose, issued_at, expires_at`

// ReplaceToken deletes any existing tokens for the token's (user, purpose)
// pair and inserts the new row, all in one transaction. Supersession and
// insertion are never visible separately.
// Returns ErrDuplicateToken if the token value collides with an existing row.
func (r *Repository) ReplaceToken(ctx context.Context, token *models.Token) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tokens WHERE user_id = ? AND purpose = ?`,
		token.UserID, token.Purpose); err != nil {
		return fmt.Errorf("supersede tokens: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (token, user_id, purpose, issued_at, expires_at) VALUES (?, ?, ?, ?, ?)`,
		token.Value, token.UserID, token.Purpose, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert token: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	token.ID = id

	return tx.Commit()
}

// ConsumeToken removes the row with the given token value and returns it.
// The single DELETE ... RETURNING statement is what makes consumption
// exactly-once under concurrent callers: only one of them gets the row back.
// Returns ErrNotFound if no such row exists.
func (r *Repository) ConsumeToken(ctx context.Context, value string) (*models.Token, error) {
	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`DELETE FROM tokens WHERE token = ? RETURNING `+tokenCols, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetToken retrieves a token row by its value without removing it.
func (r *Repository) GetToken(ctx context.Context, value string) (*models.Token, error) {
	var token models.Token
	err := r.db.GetContext(ctx, &token,
		`SELECT `+tokenCols+` FROM tokens WHERE token = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteToken removes a token row by its value.
func (r *Repository) DeleteToken(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = ?`, value)
	return err
}

// DeleteUserTokens removes all tokens for a user, optionally scoped to one
// purpose (empty purpose means all). Returns the expiry times of the removed
// rows so callers can count how many were still live.
func (r *Repository) DeleteUserTokens(ctx context.Context, userID int64, purpose models.Purpose) ([]time.Time, error) {
	query := `DELETE FROM tokens WHERE user_id = ? RETURNING expires_at`
	args := []any{userID}
	if purpose != "" {
		query = `DELETE FROM tokens WHERE user_id = ? AND purpose = ? RETURNING expires_at`
		args = append(args, purpose)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var expiries []time.Time
	for rows.Next() {
		var expiresAt time.Time
		if err := rows.Scan(&expiresAt); err != nil {
			return nil, err
		}
		expiries = append(expiries, expiresAt)
	}
	return expiries, rows.Err()
}

// DeleteExpiredTokens removes all tokens past their deadline. Expiry is
// already enforced on read; this only reclaims space.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
