package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func TestRedactor_Scrub(t *testing.T) {
	rd := newRedactor(RedactOptions{})

	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"count=10", "count=10"},
		{"email=mail@yandex.ru", "email=[REDACTED:email]"},
		{"email=mail%40yandex.ru", "email=[REDACTED:email]"},
		{"id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"phone 555-123-4567", "phone [REDACTED:phone]"},
	}
	for _, tc := range cases {
		if got := rd.scrub(tc.in); got != tc.want {
			t.Errorf("scrub(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	rd := newRedactor(RedactOptions{MaskHeaders: []string{" X-Api-Key ", ""}})

	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "sid=topsecret")
	h.Set("X-Api-Key", "shhh")
	h.Set("X-Custom", "email a@b.com")
	h.Add("Accept", "application/json")
	h.Add("Accept", "text/plain")

	got := rd.headers(h)
	for _, k := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s must be masked, got %q", k, got[k])
		}
	}
	if got["X-Custom"] != "email [REDACTED:email]" {
		t.Fatalf("X-Custom = %q", got["X-Custom"])
	}
	if got["Accept"] != "application/json, text/plain" {
		t.Fatalf("Accept = %q", got["Accept"])
	}
}

func TestLogger_RedactsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/users/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/users/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"path":"/users/:id"`) || !strings.Contains(logs, `"request_id":"rid-req"`) {
		t.Fatalf("expected route path and request id, got: %s", logs)
	}
	if strings.Contains(logs, "example.com") || strings.Contains(logs, "secret") || strings.Contains(logs, "shhh") {
		t.Fatalf("PII leaked into logs: %s", logs)
	}
	if !strings.Contains(logs, `[REDACTED:email]`) || !strings.Contains(logs, `[REDACTED:id]`) {
		t.Fatalf("expected query redactions, got: %s", logs)
	}
	if !strings.Contains(logs, `"Authorization":"[REDACTED]"`) || !strings.Contains(logs, `"X-Api-Key":"[REDACTED]"`) {
		t.Fatalf("sensitive headers must be masked: %s", logs)
	}
}

func TestLogger_WarnAndErrorLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/warn", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/error", nil))

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) {
		t.Fatalf("warn log not found: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) {
		t.Fatalf("error log not found: %s", logs)
	}
}
