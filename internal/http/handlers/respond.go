package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/focustodo/internal/accounts"
	"github.com/geocoder89/focustodo/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnauthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

type accountError struct {
	status  int
	code    string
	message string
}

// user facing answers for the auth flow failures
var accountErrors = []struct {
	err error
	accountError
}{
	{accounts.ErrValidation, accountError{http.StatusBadRequest, "invalid_request", "Please provide all required fields"}},
	{accounts.ErrEmailTaken, accountError{http.StatusBadRequest, "email_taken", "User already exists"}},
	{accounts.ErrInvalidCredentials, accountError{http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"}},
	{accounts.ErrNotVerified, accountError{http.StatusUnauthorized, "not_verified", "Please verify your email first."}},
	{accounts.ErrUserNotFound, accountError{http.StatusNotFound, "not_found", "User not found"}},
	{accounts.ErrInvalidToken, accountError{http.StatusBadRequest, "invalid_token", "Invalid token"}},
	{accounts.ErrTokenExpired, accountError{http.StatusBadRequest, "token_expired", "Token expired"}},
	{accounts.ErrInvalidOrExpiredToken, accountError{http.StatusBadRequest, "invalid_token", "Invalid or expired token"}},
	{accounts.ErrNotificationFailed, accountError{http.StatusInternalServerError, "email_failed", "Could not send email"}},
}

// RespondAccountError maps an accounts error onto the envelope. Anything
// unrecognised is logged and answered with a generic 500.
func RespondAccountError(ctx *gin.Context, err error, fallback string) {
	for _, e := range accountErrors {
		if errors.Is(err, e.err) {
			RespondError(ctx, e.status, e.code, e.message, nil)
			return
		}
	}

	slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
		"route", ctx.FullPath(), "request_id", requestIDFrom(ctx), "err", err)
	RespondInternal(ctx, fallback)
}
