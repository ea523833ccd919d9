package accounts

import "errors"

// Failures the auth flow reports to its callers. Store and mailer errors
// that fit none of these are returned wrapped and end up as a 500.
var (
	ErrValidation            = errors.New("missing required fields")
	ErrEmailTaken            = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrNotVerified           = errors.New("email not verified")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrNotificationFailed    = errors.New("notification failed")
)
