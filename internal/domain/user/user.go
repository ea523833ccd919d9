package user

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

// User is the persisted account record. Token fields are nil unless a
// verification or password reset is pending.
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	ProfilePicture string
	IsVerified     bool

	VerificationToken        *string
	VerificationTokenExpires *time.Time

	ResetPasswordToken        *string
	ResetPasswordTokenExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public is the projection of a User that is safe to send to clients.
type Public struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ProfilePicture string    `json:"profilePicture"`
	IsVerified     bool      `json:"isVerified"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u User) Public() Public {
	return Public{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (u *User) ClearVerificationToken() {
	u.VerificationToken = nil
	u.VerificationTokenExpires = nil
}

func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordTokenExpires = nil
}

type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	Name           string `json:"name" binding:"required"`
	ProfilePicture string `json:"profilePicture"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest deliberately has no email or id field; the target is
// always the authenticated caller. Empty values leave the stored value as is.
type UpdateProfileRequest struct {
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
	Password       string `json:"password"`
}
