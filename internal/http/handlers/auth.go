package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/focustodo/internal/accounts"
	"github.com/geocoder89/focustodo/internal/config"
	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/geocoder89/focustodo/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// AccountService is the slice of accounts.Service the handlers call.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (user.User, error)
	Login(ctx context.Context, email, password string) (accounts.LoginResult, error)
	VerifyEmail(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	GetCurrentUser(ctx context.Context, userID string) (user.User, error)
	UpdateProfile(ctx context.Context, userID string, in accounts.ProfileUpdate) (user.User, error)
}

type AuthHandler struct {
	accounts     AccountService
	secureCookie bool
}

func NewAuthHandler(svc AccountService, secureCookie bool) *AuthHandler {
	return &AuthHandler{accounts: svc, secureCookie: secureCookie}
}

// bcrypt plus a mail round trip can take a while
const authTimeout = 15 * time.Second

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !bindJSON(ctx, &req, "Please provide all required fields") {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.accounts.Register(cctx, accounts.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		RespondAccountError(ctx, err, "Server error during registration")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"isVerified": u.IsVerified,
		"message":    "Registered! Please check your email to verify.",
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !bindJSON(ctx, &req, "Please provide email and password") {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	res, err := h.accounts.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondAccountError(ctx, err, "Server error during login")
		return
	}

	h.setSessionCookie(ctx, res.SessionToken, res.ExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"id":             res.User.ID,
		"email":          res.User.Email,
		"name":           res.User.Name,
		"profilePicture": res.User.ProfilePicture,
		"isVerified":     res.User.IsVerified,
	})
}

// Logout only tells the browser to drop the cookie; the session credential
// itself stays valid until it expires.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.accounts.VerifyEmail(cctx, ctx.Param("token")); err != nil {
		RespondAccountError(ctx, err, "Could not verify email")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !bindJSON(ctx, &req, "Please provide an email") {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	if err := h.accounts.ForgotPassword(cctx, req.Email); err != nil {
		RespondAccountError(ctx, err, "Could not start password reset")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset email sent"})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !bindJSON(ctx, &req, "Please provide a new password") {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	if err := h.accounts.ResetPassword(cctx, ctx.Param("token"), req.Password); err != nil {
		RespondAccountError(ctx, err, "Could not reset password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Me returns the user the session guard already resolved.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authorized")
		return
	}

	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), authTimeout)
	defer cancel()

	u, err := h.accounts.UpdateProfile(cctx, userID, accounts.ProfileUpdate{
		Name:           req.Name,
		ProfilePicture: req.ProfilePicture,
		Password:       req.Password,
	})
	if err != nil {
		RespondAccountError(ctx, err, "Server error during profile update")
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

// Cookie helpers

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		raw,
		maxAge,
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		h.secureCookie,
		true,
	)
}
