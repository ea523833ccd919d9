package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/focustodo/internal/accounts"
	"github.com/geocoder89/focustodo/internal/actorctx"
	"github.com/geocoder89/focustodo/internal/auth"
	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const SessionCookieName = "token"

// Keep these interfaces small so tests can fake them easily.
type SessionVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetCurrentUser(ctx context.Context, userID string) (user.User, error)
}

// SessionGuard authenticates a request from its session cookie and resolves
// it to a live user. Anything short of that is a 401.
type SessionGuard struct {
	sessions SessionVerifier
	users    UserResolver
}

func NewSessionGuard(sessions SessionVerifier, users UserResolver) *SessionGuard {
	return &SessionGuard{sessions: sessions, users: users}
}

func (g *SessionGuard) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)
		if err != nil || raw == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Not authorized, no token")
			return
		}

		claims, err := g.sessions.VerifySessionToken(raw)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Not authorized, token failed")
			return
		}

		u, err := g.users.GetCurrentUser(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, accounts.ErrUserNotFound) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Not authorized, user not found")
				return
			}

			slog.Default().ErrorContext(c.Request.Context(), "session user lookup failed", "err", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Could not authenticate request")
			return
		}

		c.Set(CtxUserID, u.ID)
		c.Set(CtxUser, u)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
