package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/focustodo/internal/actorctx"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{&pgconn.PgError{Code: "23503"}, "foreign_key_violation"},
		{&pgconn.PgError{Code: "23514"}, "check_violation"},
		{&pgconn.PgError{Code: "08006"}, "connection"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{fmt.Errorf("users.get_by_id: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("failed to connect to `host=db`: dial error"), "connection"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		if got := classifyDBErr(tt.err); got != tt.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	ctx := context.Background()
	_ = p.ObserveDB(ctx, "users.get_by_id", func(context.Context) error { return nil })
	_ = p.ObserveDB(ctx, "users.create", func(context.Context) error { return &pgconn.PgError{Code: "23505"} })

	if got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")); got != 1 {
		t.Fatalf("expected 1 unique_violation, got %v", got)
	}
	if got := testutil.CollectAndCount(p.DbErrorsTotal); got != 1 {
		t.Fatalf("expected a single error series, got %d", got)
	}
}

func TestNilPromHelpers(t *testing.T) {
	var p *Prom

	p.IncAuthEvent("login", "ok")
	p.IncEmailSend("verification", "ok")
	p.IncRateLimited("/auth/login")
}

func TestGinHandleMiddleware_RecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewProm(prometheus.NewRegistry())

	r := gin.New()
	r.Use(p.GinHandleMiddleware())
	r.GET("/todos/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos/abc", nil))

	if got := testutil.ToFloat64(p.RequestsTotal.WithLabelValues("GET", "/todos/:id", "204")); got != 1 {
		t.Fatalf("expected request counted under route template, got %v", got)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "inside span")
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("expected trace_id in record, got %v", rec)
	}

	buf.Reset()
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered outside dev")
	}
}

func TestLogger_AddsActorAndRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	ctx := actorctx.WithUserID(context.Background(), "user-42")
	log.InfoContext(ctx, "login", "password", "pw123", "token", "abc", "email", "alice@example.com")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}

	if rec["user_id"] != "user-42" {
		t.Fatalf("expected user_id from context, got %v", rec["user_id"])
	}
	if rec["password"] != "[redacted]" || rec["token"] != "[redacted]" {
		t.Fatalf("expected secrets redacted, got %v", rec)
	}
	if rec["email"] != "alice@example.com" {
		t.Fatalf("expected email untouched, got %v", rec["email"])
	}
	if rec["env"] != "prod" {
		t.Fatalf("expected env attribute, got %v", rec["env"])
	}
}

func TestObserveDB_NilPromStillRuns(t *testing.T) {
	var p *Prom
	boom := errors.New("boom")

	called := false
	err := p.ObserveDB(context.Background(), "todos.create", func(context.Context) error {
		called = true
		return boom
	})

	if !called || !errors.Is(err, boom) {
		t.Fatalf("expected fn to run and its error returned, called=%v err=%v", called, err)
	}
}

func TestInitTracer_NoEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), TracingConfig{ServiceName: "focustodo-api", ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitTracer error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "ParentBased{root:AlwaysOnSampler"},
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); !strings.HasPrefix(got, tt.want) {
			t.Fatalf("sampler(%v) = %q, want prefix %q", tt.ratio, got, tt.want)
		}
	}
}
