package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/focustodo/internal/accounts"
	"github.com/geocoder89/focustodo/internal/auth"
	"github.com/geocoder89/focustodo/internal/config"
	"github.com/geocoder89/focustodo/internal/db"
	httpx "github.com/geocoder89/focustodo/internal/http"
	"github.com/geocoder89/focustodo/internal/http/handlers"
	"github.com/geocoder89/focustodo/internal/http/middlewares"
	"github.com/geocoder89/focustodo/internal/notifications"
	"github.com/geocoder89/focustodo/internal/observability"
	"github.com/geocoder89/focustodo/internal/redisclient"
	"github.com/geocoder89/focustodo/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var version = "dev"

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName:    "focustodo-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Endpoint:       cfg.OTLPEndpoint,
		SampleRatio:    cfg.OTLPSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := migrateUp(cfg.DBURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	users := postgres.NewUsersRepo(pool, prom)
	todos := postgres.NewTodosRepo(pool, prom)

	sessions := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL())

	svc := accounts.NewService(accounts.Deps{
		Users:     users,
		Sessions:  sessions,
		Mailer:    buildMailer(cfg, log),
		ClientURL: cfg.ClientURL,
		Logger:    log,
		Prom:      prom,
	})

	seedCtx, cancelSeed := config.WithTimeout(ctx, 10*time.Second)
	err = db.SeedUser(seedCtx, svc, cfg, log)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	ready := map[string]handlers.Pinger{"postgres": pool.Ping}

	var limiter middlewares.Limiter = middlewares.NewMemoryLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow())

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if rdb != nil {
		defer rdb.Close()
		ready["redis"] = rdb.Ping
		limiter = middlewares.NewRedisLimiter(rdb.Raw(), "focustodo:ratelimit:auth:", cfg.AuthRateLimit, cfg.AuthRateWindow())
		log.Info("redis rate limiter enabled", "addr", cfg.RedisAddr)
	}

	// set up routers
	router := httpx.NewRouter(httpx.RouterDeps{
		Log:          log,
		Prom:         prom,
		Gatherer:     reg,
		Accounts:     svc,
		Sessions:     sessions,
		Todos:        todos,
		AuthLimiter:  limiter,
		Ready:        ready,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		SecureCookie: cfg.IsProd(),

		TrustedProxies: cfg.TrustedProxies,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "version", version)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-stop:
	}
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	return nil
}

func migrateUp(dbURL string) error {
	m, err := db.NewMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}

// buildMailer sends real mail when SMTP credentials are present. Without them
// dev and test log the links instead.
func buildMailer(cfg config.Config, log *slog.Logger) notifications.Mailer {
	if cfg.Email.Enabled() {
		return notifications.NewProtectedMailer(notifications.NewSMTPMailer(cfg.Email), notifications.ProtectedMailerConfig{
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
			HalfOpenMaxCalls: 1,
		})
	}

	if cfg.IsProd() {
		log.Warn("email is not configured, verification and reset mails will fail")
		return notifications.NewSMTPMailer(cfg.Email)
	}

	log.Info("email not configured, logging links instead")
	return notifications.NewLogMailer(log)
}
