package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"postboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger(&buf, "development")
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func TestCtxHandler_AddsContextAttributes(t *testing.T) {
	buf := captureLogger(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = WithUserID(ctx, 42)
	ctx = context.WithValue(ctx, TraceIDKey, "trace-9")

	Logger.With("component", "test").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "user_id=42")
	assert.Contains(t, out, "trace_id=trace-9")
	assert.Contains(t, out, "component=test")
}

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production").Info("ready")
	assert.Contains(t, buf.String(), `"msg":"ready"`)
}

func TestContextMiddleware_PropagatesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())

	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got, _ = c.UserContext().Value(RequestIDKey).(string)
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "fixed-id", got)
}

func TestStructuredLogger(t *testing.T) {
	buf := captureLogger(t)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/fail", func(_ *fiber.Ctx) error { return errors.New("boom") })

	tests := []struct {
		path    string
		message string
	}{
		{"/ok", "request processed"},
		{"/fail", "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			_, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.message)
			assert.Contains(t, buf.String(), "path="+tt.path)
		})
	}
}

func TestTracingMiddleware_SetsTraceHeader(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	defer func() { observability.Tracer = prev }()

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Use(ContextMiddleware())

	var traceID string
	app.Get("/", func(c *fiber.Ctx) error {
		traceID, _ = c.UserContext().Value(TraceIDKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), traceID)
}

func TestMetricsMiddleware(t *testing.T) {
	prom := InitMetrics("postboard-test")
	assert.Same(t, prom, InitMetrics("postboard-test"))

	app := fiber.New()
	app.Use(MetricsMiddleware(prom))
	prom.RegisterAt(app, "/metrics")
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	_, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
