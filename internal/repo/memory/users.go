package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/focustodo/internal/domain/user"
)

// UsersRepo mirrors the postgres store for tests and local runs: email is
// unique and every returned record is a copy.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func cloneUser(u user.User) user.User {
	if u.VerificationToken != nil {
		v := *u.VerificationToken
		u.VerificationToken = &v
	}
	if u.VerificationTokenExpires != nil {
		v := *u.VerificationTokenExpires
		u.VerificationTokenExpires = &v
	}
	if u.ResetPasswordToken != nil {
		v := *u.ResetPasswordToken
		u.ResetPasswordToken = &v
	}
	if u.ResetPasswordTokenExpires != nil {
		v := *u.ResetPasswordTokenExpires
		u.ResetPasswordTokenExpires = &v
	}
	return u
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrEmailAlreadyUsed
	}

	now := r.now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.items[u.ID] = cloneUser(u)
	r.byEmail[u.Email] = u.ID

	return cloneUser(u), nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return cloneUser(r.items[id]), nil
}

func (r *UsersRepo) GetByVerificationToken(_ context.Context, token string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			return cloneUser(u), nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *UsersRepo) GetByValidResetToken(_ context.Context, token string, now time.Time) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.ResetPasswordToken == nil || *u.ResetPasswordToken != token {
			continue
		}
		if u.ResetPasswordTokenExpires != nil && u.ResetPasswordTokenExpires.After(now) {
			return cloneUser(u), nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *UsersRepo) Update(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[u.ID]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}

	// email and creation time are immutable
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.now().UTC()

	r.items[u.ID] = cloneUser(u)

	return cloneUser(u), nil
}
