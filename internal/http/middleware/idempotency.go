// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for the create endpoints
// (POST /users, POST /films). The middleware validates the header, asks a
// narrow lookup whether the same (scope, key) already produced a resource,
// and annotates the Gin context so handlers can:
//   - read the normalized key (GetIdempotencyKey) and its scope (IdempotencyScope)
//   - detect replays and the id of the original resource (ReplayedResourceID)
//   - bypass rate limiting when a replay is served (via an internal flag)
//
// Only POST requests are considered; PUT and DELETE are idempotent by
// definition and ignore the header.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header that clients use to convey an
// idempotency key for a create.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemScope    = "idem.scope"
	ctxKeyIdemReplay   = "idem.replay"   // bool: true when a stored record exists
	ctxKeyIdemResource = "idem.resource" // int64: id created by the original request
	ctxKeyRateBypass   = "rate.bypass"   // bool: true to skip rate limiting
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
// The second return value indicates presence.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IdempotencyScope returns the scope the key was looked up in, e.g.
// "POST /api/v1/users". Empty when no key was accepted.
func IdempotencyScope(c *gin.Context) string {
	v, _ := c.Get(ctxKeyIdemScope)
	s, _ := v.(string)
	return s
}

// IsReplay reports whether this request repeats a completed keyed create.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ReplayedResourceID returns the id of the resource created by the original
// request when this request is a replay.
func ReplayedResourceID(c *gin.Context) (int64, bool) {
	if !IsReplay(c) {
		return 0, false
	}
	v, ok := c.Get(ctxKeyIdemResource)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// IdempotencyOptions configures header validation for IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, ^[A-Za-z0-9._~\-:]+$ is used.
	Pattern *regexp.Regexp
	// Scope maps a request to its key namespace. Defaults to
	// "<method> <route>", so the same key may be reused across endpoints.
	Scope func(*gin.Context) string
}

// IdempotencyLookup answers whether a still-valid record exists for
// (scope, key) at now, and which resource it points to. TTL is enforced by
// the implementation. Lookup errors never block the request.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (resourceID int64, exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header on POST requests,
// stashes key and scope in the context and, when lookup finds a prior
// record, marks the request as a replay of that resource.
//
// Behavior:
//   - Non-POST or no header: no-op.
//   - Malformed header: 400 with code bad_idempotency_key.
//   - Replay: sets replay, resource id and rate-bypass flags.
//
// Handlers decide how to serve a replay; the middleware never writes the
// cached resource itself.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	scopeOf := opts.Scope
	if scopeOf == nil {
		scopeOf = routeScope
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		scope := scopeOf(c)
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			id, exists, err := lookup(c.Request.Context(), scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			}
			if exists && err == nil {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyIdemResource, id)
				c.Set(ctxKeyRateBypass, true)
				idempotentReplays.WithLabelValues(scope).Inc()
			}
		}

		c.Next()
	}
}

// routeScope keys a request by method and registered route.
func routeScope(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.Request.Method + " " + path
}
