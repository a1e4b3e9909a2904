package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpers_GetIdempotencyKey_IsReplay_ReplayedResourceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected empty key when not set")
	}
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false by default")
	}
	if _, ok := ReplayedResourceID(c); ok {
		t.Fatalf("expected no replayed resource by default")
	}
	if IdempotencyScope(c) != "" {
		t.Fatalf("expected empty scope by default")
	}

	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatalf("expected GetIdempotencyKey to be absent for non-string value")
	}

	// Resource id without the replay flag is ignored.
	c.Set(ctxKeyIdemResource, int64(7))
	if _, ok := ReplayedResourceID(c); ok {
		t.Fatalf("resource id must require the replay flag")
	}
	c.Set(ctxKeyIdemReplay, true)
	if id, ok := ReplayedResourceID(c); !ok || id != 7 {
		t.Fatalf("ReplayedResourceID = (%d, %v), want (7, true)", id, ok)
	}
	c.Set(ctxKeyIdemResource, "7")
	if _, ok := ReplayedResourceID(c); ok {
		t.Fatalf("non-int64 resource id must be ignored")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatalf("expected IsReplay=false for non-bool")
	}
}

func TestIdempotencyValidator_NoHeader_NoLookupCalled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(context.Context, string, string, time.Time) (int64, bool, error) {
		lookupCalled = true
		return 0, false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/users", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("key should not be present when header missing")
		}
		c.Status(http.StatusCreated)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup must not be called without a header")
	}
}

func TestIdempotencyValidator_IgnoresNonPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookupCalled := false
	lookup := func(context.Context, string, string, time.Time) (int64, bool, error) {
		lookupCalled = true
		return 1, true, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.PUT("/users", func(c *gin.Context) {
		if _, ok := GetIdempotencyKey(c); ok {
			t.Fatalf("PUT must not carry an idempotency key")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/users", nil)
	req.Header.Set(HeaderIdempotencyKey, "bad key with spaces")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if lookupCalled {
		t.Fatalf("lookup must not be called for PUT")
	}
}

func TestIdempotencyValidator_InvalidHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		opts IdempotencyOptions
		key  string
	}{
		{"pattern", IdempotencyOptions{}, "has space"},
		{"too long", IdempotencyOptions{MaxLen: 4}, "abcde"},
		{"custom pattern", IdempotencyOptions{Pattern: regexp.MustCompile(`^[0-9]+$`)}, "abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(IdempotencyValidator(tc.opts, nil))
			r.POST("/films", func(c *gin.Context) {
				t.Fatalf("handler must not run for invalid key")
			})

			req := httptest.NewRequest(http.MethodPost, "/films", nil)
			req.Header.Set(HeaderIdempotencyKey, tc.key)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d", w.Code)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body["code"] != "bad_idempotency_key" {
				t.Fatalf("unexpected body: %v", body)
			}
		})
	}
}

func TestIdempotencyValidator_FreshKeyStashesScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var gotScope, gotKey string
	lookup := func(_ context.Context, scope, key string, now time.Time) (int64, bool, error) {
		gotScope, gotKey = scope, key
		if now.Location() != time.UTC {
			t.Errorf("lookup time must be UTC, got %v", now.Location())
		}
		return 0, false, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/api/v1/users", func(c *gin.Context) {
		if IsReplay(c) || IsRateBypass(c) {
			t.Fatalf("fresh key must not be a replay")
		}
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusCreated, gin.H{"key": key, "scope": IdempotencyScope(c)})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	if gotScope != "POST /api/v1/users" || gotKey != "k-1" {
		t.Fatalf("lookup got (%q, %q)", gotScope, gotKey)
	}
	if !strings.Contains(w.Body.String(), `"scope":"POST /api/v1/users"`) {
		t.Fatalf("scope not stashed: %s", w.Body.String())
	}
}

func TestIdempotencyValidator_ReplayMarksContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookup := func(context.Context, string, string, time.Time) (int64, bool, error) {
		return 42, true, nil
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{
		Scope: func(*gin.Context) string { return "films" },
	}, lookup))
	r.POST("/films", func(c *gin.Context) {
		id, ok := ReplayedResourceID(c)
		if !ok || id != 42 || !IsRateBypass(c) {
			t.Fatalf("replay not marked: id=%d ok=%v bypass=%v", id, ok, IsRateBypass(c))
		}
		c.Status(http.StatusOK)
	})

	base := testutil.ToFloat64(idempotentReplays.WithLabelValues("films"))

	req := httptest.NewRequest(http.MethodPost, "/films", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := testutil.ToFloat64(idempotentReplays.WithLabelValues("films")); got != base+1 {
		t.Fatalf("replays counter = %v; want %v", got, base+1)
	}
}

func TestIdempotencyValidator_LookupErrorDoesNotBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	lookup := func(context.Context, string, string, time.Time) (int64, bool, error) {
		return 9, true, errors.New("db down")
	}
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/users", func(c *gin.Context) {
		if IsReplay(c) {
			t.Fatalf("a failed lookup must not produce a replay")
		}
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set(HeaderIdempotencyKey, "k-3")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
}
