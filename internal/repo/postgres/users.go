package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, name, profile_picture, is_verified,
		verification_token, verification_token_expires,
		reset_password_token, reset_password_token_expires,
		created_at, updated_at`

type UsersRepo struct {
	db DB
	observer
}

func NewUsersRepo(db DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{db: db, observer: observer{prom: prom}}
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.ProfilePicture,
		&u.IsVerified,
		&u.VerificationToken,
		&u.VerificationTokenExpires,
		&u.ResetPasswordToken,
		&u.ResetPasswordTokenExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

// queryUser runs a single-row query. A miss is mapped to ErrUserNotFound
// outside the metrics wrapper so it is not counted as a DB error.
func (r *UsersRepo) queryUser(ctx context.Context, op, sql string, args ...any) (user.User, error) {
	var u user.User
	found := true

	err := r.observe(ctx, op, func(ctx context.Context) error {
		err := scanUser(r.db.QueryRow(ctx, sql, args...), &u)
		if errors.Is(err, pgx.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	if !found {
		return user.User{}, user.ErrUserNotFound
	}

	return u, nil
}

// Create inserts u. The unique index on email is the source of truth for
// duplicate registrations.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	out, err := r.queryUser(ctx, "users.create",
		`INSERT INTO users (id, email, password_hash, name, profile_picture, is_verified,
			verification_token, verification_token_expires,
			reset_password_token, reset_password_token_expires,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
		RETURNING `+userColumns,
		u.ID, u.Email, u.PasswordHash, u.Name, u.ProfilePicture, u.IsVerified,
		u.VerificationToken, u.VerificationTokenExpires,
		u.ResetPasswordToken, u.ResetPasswordTokenExpires,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByVerificationToken matches on the token only. Expiry is the caller's
// concern so an expired token can be reported as such.
func (r *UsersRepo) GetByVerificationToken(ctx context.Context, token string) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_verification_token",
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

// GetByValidResetToken only returns a user whose reset token expires strictly
// after now.
func (r *UsersRepo) GetByValidResetToken(ctx context.Context, token string, now time.Time) (user.User, error) {
	return r.queryUser(ctx, "users.get_by_valid_reset_token",
		`SELECT `+userColumns+` FROM users
		WHERE reset_password_token = $1
		  AND reset_password_token_expires > $2`, token, now)
}

// Update persists every mutable field of u. Email and id are never changed.
func (r *UsersRepo) Update(ctx context.Context, u user.User) (user.User, error) {
	return r.queryUser(ctx, "users.update",
		`UPDATE users
		SET password_hash = $2,
			name = $3,
			profile_picture = $4,
			is_verified = $5,
			verification_token = $6,
			verification_token_expires = $7,
			reset_password_token = $8,
			reset_password_token_expires = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.PasswordHash, u.Name, u.ProfilePicture, u.IsVerified,
		u.VerificationToken, u.VerificationTokenExpires,
		u.ResetPasswordToken, u.ResetPasswordTokenExpires,
	)
}
