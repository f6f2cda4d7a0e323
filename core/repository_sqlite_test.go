package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *SQLiteUserRepository {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteUserRepository(db)
}

func TestSQLiteCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	created, err := repo.Create(ctx, NewUserRecord{Email: "a@example.com", Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Nil(t, created.Bio)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byEmail, err := repo.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByID(ctx, created.ID+1)
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSQLiteExists(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	_, err := repo.Create(ctx, NewUserRecord{Email: "a@example.com", Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	ok, err := repo.EmailExists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.EmailExists(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.UsernameExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteUniqueViolations(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	_, err := repo.Create(ctx, NewUserRecord{Email: "a@example.com", Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	bob, err := repo.Create(ctx, NewUserRecord{Email: "b@example.com", Username: "bob", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, NewUserRecord{Email: "a@example.com", Username: "carol", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrEmailConflict)
	_, err = repo.Create(ctx, NewUserRecord{Email: "c@example.com", Username: "alice", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrUsernameConflict)

	_, err = repo.Update(ctx, bob.ID, UserChanges{Username: strPtr("alice")})
	assert.ErrorIs(t, err, ErrUsernameConflict)
	assert.ErrorIs(t, conflictToAppError(err), ErrUsernameTaken)
}

func TestSQLiteUpdateCoalesces(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	u, err := repo.Create(ctx, NewUserRecord{Email: "a@example.com", Username: "alice", PasswordHash: "h1"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, u.ID, UserChanges{Bio: strPtr("hi")})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", updated.Email)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "h1", updated.PasswordHash)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "hi", *updated.Bio)

	updated, err = repo.Update(ctx, u.ID, UserChanges{PasswordHash: strPtr("h2"), Image: strPtr("https://example.com/x.png")})
	require.NoError(t, err)
	assert.Equal(t, "h2", updated.PasswordHash)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "hi", *updated.Bio)
	require.NotNil(t, updated.Image)

	_, err = repo.Update(ctx, u.ID+100, UserChanges{Bio: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOpenUserStoreSchemes(t *testing.T) {
	ctx := context.Background()

	repo, closeFn, err := OpenUserStore(ctx, "sqlite::memory:")
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &SQLiteUserRepository{}, repo)

	_, _, err = OpenUserStore(ctx, "mysql://localhost/db")
	assert.Error(t, err)
}
