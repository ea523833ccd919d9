package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/geocoder89/focustodo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnsurer struct {
	calls   int
	created bool
	err     error
	email   string
}

func (f *fakeEnsurer) EnsureVerifiedUser(_ context.Context, email, _, _ string) (bool, error) {
	f.calls++
	f.email = email
	return f.created, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedUser_SkipsWithoutCredentials(t *testing.T) {
	f := &fakeEnsurer{}

	require.NoError(t, SeedUser(context.Background(), f, config.Config{SeedEmail: "demo@example.com"}, discardLogger()))
	assert.Zero(t, f.calls)
}

func TestSeedUser_EnsuresConfiguredAccount(t *testing.T) {
	f := &fakeEnsurer{created: true}
	cfg := config.Config{SeedEmail: "demo@example.com", SeedPassword: "secret123", SeedName: "Demo"}

	require.NoError(t, SeedUser(context.Background(), f, cfg, discardLogger()))
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "demo@example.com", f.email)
}

func TestSeedUser_PropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	f := &fakeEnsurer{err: boom}
	cfg := config.Config{SeedEmail: "demo@example.com", SeedPassword: "secret123"}

	require.ErrorIs(t, SeedUser(context.Background(), f, cfg, discardLogger()), boom)
}
