// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package token_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/schoolhub/internal/models"
	"codeberg.org/oliverandrich/schoolhub/internal/services/token"
	"codeberg.org/oliverandrich/schoolhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndConsume(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, value)

	userID, err := store.Consume(ctx, value, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestConsumeIsSingleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)

	_, err = store.Consume(ctx, value, models.PurposeVerify)
	require.NoError(t, err)

	_, err = store.Consume(ctx, value, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestConsumeUnknownToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)

	_, err := store.Consume(context.Background(), "no-such-token", models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestConsumeWrongPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)

	_, err = store.Consume(ctx, value, models.PurposeReset)
	assert.ErrorIs(t, err, token.ErrNotFound)

	// The mismatch consumed the token too.
	_, err = store.Consume(ctx, value, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestConsumeExpiredToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, -time.Minute)
	require.NoError(t, err)

	_, err = store.Consume(ctx, value, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestZeroTTLTokenIsNeverConsumable(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, 0)
	require.NoError(t, err)

	_, err = store.Consume(ctx, value, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestIssueSupersedesPreviousToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	first, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	second, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = store.Consume(ctx, first, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)

	userID, err := store.Consume(ctx, second, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestIssueKeepsOtherPurposesAlive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	verify, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	_, err = store.Issue(ctx, user.ID, models.PurposeReset, time.Hour)
	require.NoError(t, err)

	userID, err := store.Consume(ctx, verify, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestPeekDoesNotConsume(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)

	tok, err := store.Peek(ctx, value, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, tok.UserID)

	_, err = store.Consume(ctx, value, models.PurposeVerify)
	assert.NoError(t, err)
}

func TestPeekRemovesExpiredToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, -time.Minute)
	require.NoError(t, err)

	_, err = store.Peek(ctx, value, models.PurposeVerify)
	assert.ErrorIs(t, err, token.ErrNotFound)

	// The expired row is gone, not just hidden.
	_, err = repo.GetToken(ctx, value)
	assert.Error(t, err)
}

func TestRevokeAllCountsLiveTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	_, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	_, err = store.Issue(ctx, user.ID, models.PurposeReset, -time.Minute)
	require.NoError(t, err)

	live, err := store.RevokeAll(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)

	live, err = store.RevokeAll(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Zero(t, live)
}

func TestRevokeAllScopedToPurpose(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	verify, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	_, err = store.Issue(ctx, user.ID, models.PurposeReset, time.Hour)
	require.NoError(t, err)

	live, err := store.RevokeAll(ctx, user.ID, models.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)

	// The verification token survived the scoped revoke.
	userID, err := store.Consume(ctx, verify, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestSweepRemovesOnlyExpiredTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	alice := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)
	bob := testutil.CreateTestUser(t, repo, "bob@example.com", "Str0ngEnough", true)

	live, err := store.Issue(ctx, alice.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)
	_, err = store.Issue(ctx, bob.ID, models.PurposeVerify, -time.Minute)
	require.NoError(t, err)

	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	userID, err := store.Consume(ctx, live, models.PurposeVerify)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, userID)
}

func TestConcurrentConsumeSucceedsExactlyOnce(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	store := token.NewStore(repo)
	ctx := context.Background()

	user := testutil.CreateTestUser(t, repo, "alice@example.com", "Str0ngEnough", true)

	value, err := store.Issue(ctx, user.ID, models.PurposeVerify, time.Hour)
	require.NoError(t, err)

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Consume(ctx, value, models.PurposeVerify)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, notFound int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, token.ErrNotFound)
			notFound++
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, notFound)
}
