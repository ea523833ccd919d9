package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/focustodo/internal/config"
)

type verifiedUserEnsurer interface {
	EnsureVerifiedUser(ctx context.Context, email, password, name string) (bool, error)
}

// SeedUser creates the configured demo account, already verified, if it does
// not exist yet. Nothing happens when SEED_EMAIL or SEED_PASSWORD is unset.
func SeedUser(ctx context.Context, accounts verifiedUserEnsurer, cfg config.Config, log *slog.Logger) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	created, err := accounts.EnsureVerifiedUser(ctx, cfg.SeedEmail, cfg.SeedPassword, cfg.SeedName)
	if err != nil {
		return err
	}

	if created {
		log.Info("seed user created", "email", cfg.SeedEmail)
	} else {
		log.Info("seed user already exists", "email", cfg.SeedEmail)
	}

	return nil
}
