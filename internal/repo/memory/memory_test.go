package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/focustodo/internal/domain/todo"
	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepo_EmailIsUnique(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, user.User{ID: "u1", Email: "a@x.io"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, user.User{ID: "u2", Email: "a@x.io"})
	require.ErrorIs(t, err, user.ErrEmailAlreadyUsed)
}

func TestUsersRepo_ReturnsCopies(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	tok := "abc"
	_, err := repo.Create(ctx, user.User{ID: "u1", Email: "a@x.io", VerificationToken: &tok})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	*got.VerificationToken = "mutated"

	again, err := repo.GetByVerificationToken(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", *again.VerificationToken)
}

func TestUsersRepo_GetByValidResetToken(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	tok := "reset"
	exp := now.Add(time.Hour)
	_, err := repo.Create(ctx, user.User{ID: "u1", Email: "a@x.io", ResetPasswordToken: &tok, ResetPasswordTokenExpires: &exp})
	require.NoError(t, err)

	_, err = repo.GetByValidResetToken(ctx, "reset", now)
	require.NoError(t, err)

	// expiry equal to now is no longer valid
	_, err = repo.GetByValidResetToken(ctx, "reset", exp)
	require.ErrorIs(t, err, user.ErrUserNotFound)

	_, err = repo.GetByValidResetToken(ctx, "other", now)
	require.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUsersRepo_UpdateKeepsEmail(t *testing.T) {
	repo := NewUsersRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, user.User{ID: "u1", Email: "a@x.io", Name: "A"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, user.User{ID: "u1", Email: "hijack@x.io", Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", updated.Email)
	assert.Equal(t, "B", updated.Name)

	_, err = repo.Update(ctx, user.User{ID: "missing"})
	require.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestTodosRepo_ScopedByOwner(t *testing.T) {
	repo := NewTodosRepo()
	ctx := context.Background()
	base := time.Now().UTC()

	_, _ = repo.Create(ctx, todo.Todo{ID: "t1", UserID: "alice", Text: "old", CreatedAt: base})
	_, _ = repo.Create(ctx, todo.Todo{ID: "t2", UserID: "alice", Text: "new", CreatedAt: base.Add(time.Minute)})
	_, _ = repo.Create(ctx, todo.Todo{ID: "t3", UserID: "bob", Text: "bob's", CreatedAt: base})

	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t2", list[0].ID)
	assert.Equal(t, "t1", list[1].ID)

	_, err = repo.GetByID(ctx, "bob", "t1")
	require.ErrorIs(t, err, todo.ErrNotFound)

	_, err = repo.Update(ctx, todo.Todo{ID: "t1", UserID: "bob", Text: "stolen"})
	require.ErrorIs(t, err, todo.ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, "bob", "t1"), todo.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "alice", "t1"))

	list, err = repo.ListByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
