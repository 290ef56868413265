// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, models.RoleStudent.Valid())
	assert.True(t, models.RoleTeacher.Valid())
	assert.True(t, models.RoleAdmin.Valid())
	assert.False(t, models.Role("principal").Valid())
	assert.False(t, models.Role("").Valid())
}

func TestTokenExpired(t *testing.T) {
	now := time.Now().UTC()
	tok := &models.Token{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Hour)))
	assert.True(t, tok.Expired(now.Add(2*time.Hour)))
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	user := models.User{
		ID:           1,
		Email:        "alice@example.com",
		PasswordHash: "secret-hash",
		Role:         models.RoleStudent,
	}

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
}

func TestTokenJSONHidesValue(t *testing.T) {
	tok := models.Token{
		ID:      1,
		Value:   "secret-token",
		UserID:  1,
		Purpose: models.PurposeVerify,
	}

	data, err := json.Marshal(tok)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
}
