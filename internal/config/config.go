package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret      string
	SessionTTLDays int

	// base URL of the single-page client; verification/reset links point here
	ClientURL   string
	CORSOrigins []string

	// proxies whose X-Forwarded-For is trusted; empty means none
	TrustedProxies []string

	Email EmailConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint    string
	OTLPSampleRatio float64

	MaxBodyBytes          int64
	AuthRateLimit         int
	AuthRateWindowSeconds int

	SeedEmail    string
	SeedPassword string
	SeedName     string

	RunMigrations bool
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// implicit TLS (port 465); otherwise STARTTLS when offered
	Secure bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.Username != ""
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSeconds) * time.Second
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required outside dev and test")
	ErrUnknownEnv       = errors.New("APP_ENV must be one of dev, test, prod")
)

// parseEnv maps APP_ENV onto dev, test or prod. Anything else is rejected so a
// typo can never drop the production cookie and mode settings.
func parseEnv(val string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "dev", "development":
		return "dev", nil
	case "test":
		return "test", nil
	case "prod", "production":
		return "prod", nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrUnknownEnv, val)
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	env, err := parseEnv(getEnv("APP_ENV", "dev"))
	if err != nil {
		return Config{}, err
	}
	clientURL := strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:5173"), "/")

	cfg := Config{
		Env:   env,
		Port:  getEnvInt("PORT", 5000),
		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionTTLDays: getEnvInt("SESSION_TTL_DAYS", 30),

		ClientURL:   clientURL,
		CORSOrigins: parseList(getEnv("CORS_ORIGINS", clientURL)),

		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),

		Email: EmailConfig{
			Host:     getEnv("EMAIL_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("EMAIL_PORT", 587),
			Username: os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			From:     os.Getenv("EMAIL_FROM"),
			Secure:   getEnvBool("EMAIL_SECURE", false),
		},

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),

		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 10<<20)),
		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),

		SeedEmail:    os.Getenv("SEED_EMAIL"),
		SeedPassword: os.Getenv("SEED_PASSWORD"),
		SeedName:     getEnv("SEED_NAME", "Demo User"),

		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),
	}

	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.Username
	}

	if cfg.JWTSecret == "" {
		if env != "dev" && env != "test" {
			return Config{}, ErrMissingJWTSecret
		}
		cfg.JWTSecret = "dev-only-insecure-secret"
	}

	if cfg.SessionTTLDays <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL_DAYS must be positive, got %d", cfg.SessionTTLDays)
	}

	return cfg, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "focustodo")
	pass := getEnv("DB_PASSWORD", "focustodo")
	name := getEnv("DB_NAME", "focustodo")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout derives a bounded context for store and mail calls, keeping
// the request's trace and actor values.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func parseList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if trimmed := strings.TrimRight(strings.TrimSpace(p), "/"); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
