package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/focustodo/internal/accounts"
	"github.com/geocoder89/focustodo/internal/actorctx"
	"github.com/geocoder89/focustodo/internal/auth"
	"github.com/geocoder89/focustodo/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	getFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUsers) GetCurrentUser(ctx context.Context, id string) (user.User, error) {
	return f.getFn(ctx, id)
}

func guardedRouter(guard *SessionGuard) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/auth/me", guard.RequireSession(), func(c *gin.Context) {
		u, _ := UserFromContext(c)
		ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "ctx": ctxID})
	})
	return r
}

func TestSessionGuard(t *testing.T) {
	secret := "test-secret"
	manager := auth.NewManager(secret, time.Hour)

	valid, _, err := manager.GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	ghost, _, _ := manager.GenerateSessionToken("ghost")
	expired, _, _ := auth.NewManager(secret, time.Hour).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		GenerateSessionToken("u1")
	foreign, _, _ := auth.NewManager("other-secret", time.Hour).GenerateSessionToken("u1")

	users := &fakeUsers{getFn: func(_ context.Context, id string) (user.User, error) {
		switch id {
		case "u1":
			return user.User{ID: "u1", Email: "alice@example.com"}, nil
		case "broken":
			return user.User{}, errors.New("db down")
		default:
			return user.User{}, accounts.ErrUserNotFound
		}
	}}

	r := guardedRouter(NewSessionGuard(manager, users))

	tests := []struct {
		name   string
		cookie string
		want   int
	}{
		{"no cookie", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"wrong signature", foreign, http.StatusUnauthorized},
		{"tampered", valid[:len(valid)-2] + "xx", http.StatusUnauthorized},
		{"user deleted", ghost, http.StatusUnauthorized},
		{"valid", valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("got %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), `"ctx":"u1"`) {
				t.Fatalf("expected user id on request context, body=%s", w.Body.String())
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("expected unauthorized envelope, body=%s", w.Body.String())
			}
		})
	}
}

func TestSessionGuard_StoreFailureIs500(t *testing.T) {
	manager := auth.NewManager("s", time.Hour)
	raw, _, _ := manager.GenerateSessionToken("broken")

	users := &fakeUsers{getFn: func(context.Context, string) (user.User, error) {
		return user.User{}, errors.New("db down")
	}}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: raw})
	w := httptest.NewRecorder()
	guardedRouter(NewSessionGuard(manager, users)).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
}

func TestMemoryLimiter_Window(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(ctx, "k"); !ok {
			t.Fatalf("hit %d should pass", i)
		}
	}

	ok, retry, _ := l.Allow(ctx, "k")
	if ok {
		t.Fatalf("third hit should be limited")
	}
	if retry != time.Minute {
		t.Fatalf("unexpected retry after %s", retry)
	}

	if ok, _, _ := l.Allow(ctx, "other"); !ok {
		t.Fatalf("keys must be independent")
	}

	now = now.Add(time.Minute)
	if ok, _, _ := l.Allow(ctx, "k"); !ok {
		t.Fatalf("new window should pass")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.POST("/auth/login", RateLimit(NewMemoryLimiter(1, time.Minute), KeyByIP, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/open", RateLimit(failingLimiter{}, KeyByIP, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("/auth/login"); w.Code != http.StatusOK {
		t.Fatalf("first request got %d", w.Code)
	}

	w := do("/auth/login")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	if w := do("/open"); w.Code != http.StatusOK {
		t.Fatalf("limiter errors should fail open, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/todos", func(c *gin.Context) { c.Status(http.StatusCreated) })

	tests := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"json", "application/json", `{}`, http.StatusCreated},
		{"json with charset", "application/json; charset=utf-8", `{}`, http.StatusCreated},
		{"form", "application/x-www-form-urlencoded", `a=b`, http.StatusUnsupportedMediaType},
		{"missing type", "", `{}`, http.StatusUnsupportedMediaType},
		{"no body", "", ``, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(tt.body))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.GET("/todos", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("missing CORS headers: %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unknown origin must not be allowed")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", w.Code)
	}
}

func TestRequestID_EchoesOrReplaces(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		header string
		echo   bool
	}{
		{"well formed", "abc-123_x.y", true},
		{"missing", "", false},
		{"log injection", "id\nlevel=ERROR", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-Id", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-Id")
			if got == "" {
				t.Fatalf("expected a request id")
			}
			if (got == tt.header) != tt.echo {
				t.Fatalf("header %q -> %q, echo=%v", tt.header, got, tt.echo)
			}
		})
	}
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), RequestLogger(log))
	r.GET("/todos/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, want := range map[string]string{"/todos/123": "WARN", "/boom": "ERROR"} {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if rec["level"] != want {
			t.Fatalf("%s: expected level %s, got %v", path, want, rec["level"])
		}
		if path == "/todos/123" && rec["route"] != "/todos/:id" {
			t.Fatalf("expected route template, got %v", rec["route"])
		}
	}
}
