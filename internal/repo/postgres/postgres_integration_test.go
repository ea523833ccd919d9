//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/focustodo/internal/db"
	"github.com/geocoder89/focustodo/internal/domain/todo"
	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/geocoder89/focustodo/internal/repo/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway PostgreSQL with the embedded schema applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("focustodo"),
		tcpostgres.WithUsername("focustodo"),
		tcpostgres.WithPassword("focustodo"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := db.NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func TestUsersRepo_AgainstPostgres(t *testing.T) {
	pool := startPostgres(t)
	repo := postgres.NewUsersRepo(pool, nil)
	ctx := context.Background()

	token := "0123456789abcdef0123456789abcdef01234567"
	expires := time.Now().Add(24 * time.Hour).UTC()

	created, err := repo.Create(ctx, user.User{
		ID:                       uuid.NewString(),
		Email:                    "alice@example.com",
		PasswordHash:             "$2a$10$hash",
		Name:                     "Alice",
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	})
	require.NoError(t, err)
	assert.False(t, created.IsVerified)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, user.User{ID: uuid.NewString(), Email: "alice@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, user.ErrEmailAlreadyUsed)

	byToken, err := repo.GetByVerificationToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)

	byToken.IsVerified = true
	byToken.ClearVerificationToken()
	_, err = repo.Update(ctx, byToken)
	require.NoError(t, err)

	_, err = repo.GetByVerificationToken(ctx, token)
	require.ErrorIs(t, err, user.ErrUserNotFound)

	reset := "fedcba9876543210fedcba9876543210fedcba98"
	resetExpires := time.Now().Add(time.Hour).UTC()
	byToken.ResetPasswordToken = &reset
	byToken.ResetPasswordTokenExpires = &resetExpires
	_, err = repo.Update(ctx, byToken)
	require.NoError(t, err)

	_, err = repo.GetByValidResetToken(ctx, reset, time.Now())
	require.NoError(t, err)

	_, err = repo.GetByValidResetToken(ctx, reset, resetExpires.Add(time.Second))
	require.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestTodosRepo_AgainstPostgres(t *testing.T) {
	pool := startPostgres(t)
	users := postgres.NewUsersRepo(pool, nil)
	todos := postgres.NewTodosRepo(pool, nil)
	ctx := context.Background()

	owner, err := users.Create(ctx, user.User{ID: uuid.NewString(), Email: "owner@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	other, err := users.Create(ctx, user.User{ID: uuid.NewString(), Email: "other@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	first, err := todos.Create(ctx, todo.NewFromCreateRequest(owner.ID, todo.CreateTodoRequest{Text: "first"}))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := todos.Create(ctx, todo.NewFromCreateRequest(owner.ID, todo.CreateTodoRequest{Text: "second", Priority: todo.PriorityHigh}))
	require.NoError(t, err)

	list, err := todos.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	_, err = todos.GetByID(ctx, other.ID, first.ID)
	require.ErrorIs(t, err, todo.ErrNotFound)
	require.ErrorIs(t, todos.Delete(ctx, other.ID, first.ID), todo.ErrNotFound)

	first.Completed = true
	updated, err := todos.Update(ctx, first)
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	bad := second
	bad.Priority = "urgent"
	_, err = todos.Update(ctx, bad)
	require.Error(t, err)

	require.NoError(t, todos.Delete(ctx, owner.ID, first.ID))

	list, err = todos.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
