package http

import (
	"log/slog"

	"github.com/geocoder89/focustodo/internal/http/handlers"
	"github.com/geocoder89/focustodo/internal/http/middlewares"
	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "focustodo-api"

// RouterDeps is everything the HTTP layer needs, built once in main.
type RouterDeps struct {
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer // nil disables /metrics

	Accounts handlers.AccountService
	Sessions middlewares.SessionVerifier
	Todos    handlers.TodoStore

	AuthLimiter middlewares.Limiter // nil disables rate limiting
	Ready       map[string]handlers.Pinger

	CORSOrigins  []string
	MaxBodyBytes int64
	SecureCookie bool

	// TrustedProxies lists the proxy IPs/CIDRs whose X-Forwarded-For is
	// honoured. Empty means the client IP is always the peer address.
	TrustedProxies []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		if d.Log != nil {
			d.Log.Warn("invalid trusted proxies, ignoring forwarded headers", "err", err)
		}
		_ = r.SetTrustedProxies(nil)
	}

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.SecureCookie))
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	if d.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}

	// health
	h := handlers.NewHealthHandler(d.Ready)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	guard := middlewares.NewSessionGuard(d.Sessions, d.Accounts)
	authHandler := handlers.NewAuthHandler(d.Accounts, d.SecureCookie)
	todosHandler := handlers.NewTodosHandler(d.Todos)

	limited := func(c *gin.Context) { c.Next() }
	if d.AuthLimiter != nil {
		limited = middlewares.RateLimit(d.AuthLimiter, middlewares.KeyByIP, d.Prom)
	}

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RequireJSON())
	{
		authGroup.POST("/register", limited, authHandler.Register)
		authGroup.POST("/login", limited, authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/verify/:token", limited, authHandler.VerifyEmail)
		authGroup.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authGroup.POST("/reset-password/:token", limited, authHandler.ResetPassword)

		authGroup.GET("/me", guard.RequireSession(), authHandler.Me)
		authGroup.PUT("/profile", guard.RequireSession(), authHandler.UpdateProfile)
	}

	todos := r.Group("/todos")
	todos.Use(guard.RequireSession(), middlewares.RequireJSON())
	{
		todos.GET("", todosHandler.List)
		todos.POST("", todosHandler.Create)
		todos.PUT("/:id", todosHandler.Update)
		todos.DELETE("/:id", todosHandler.Delete)
	}

	return r
}
