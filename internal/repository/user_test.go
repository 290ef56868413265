// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/repository"
	"codeberg.org/oliverandrich/schoolhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		FirstName:    "Alice",
		LastName:     "Miller",
		Role:         models.RoleStudent,
	}
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.False(t, user.UpdatedAt.IsZero())

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, models.RoleStudent, got.Role)
	assert.False(t, got.Verified)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)

	dup := &models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		FirstName:    "Other",
		LastName:     "Person",
		Role:         models.RoleTeacher,
	}
	err := repo.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestCreateUserDuplicateEmailDifferentCase(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)

	// The email column collates case-insensitively.
	dup := &models.User{
		Email:        "ALICE@EXAMPLE.COM",
		PasswordHash: "hash",
		FirstName:    "Other",
		LastName:     "Person",
		Role:         models.RoleTeacher,
	}
	err := repo.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateUserPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)

	require.NoError(t, repo.UpdateUserPassword(ctx, user.ID, "new-hash"))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestUpdateUserPasswordNotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.UpdateUserPassword(context.Background(), 12345, "new-hash")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetUserVerified(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)

	require.NoError(t, repo.SetUserVerified(ctx, user.ID, true))

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
}

func TestSetUserVerifiedNotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	err := repo.SetUserVerified(context.Background(), 12345, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	count, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)
	testutil.CreateTestUser(t, repo, "bob@example.com", "Str0ngEnough", false)

	count, err = repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDeleteUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", false)

	require.NoError(t, repo.DeleteUser(ctx, user.ID))

	_, err := repo.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteUser(ctx, user.ID), repository.ErrNotFound)
}
