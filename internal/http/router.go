// Package httpapi wires the HTTP transport (Gin) to the filmorate services,
// middleware and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Storage-agnostic: the same routes run on SQLite or in memory
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-filmorate-backend/docs"
	"github.com/tbourn/go-filmorate-backend/internal/config"
	"github.com/tbourn/go-filmorate-backend/internal/http/handlers"
	"github.com/tbourn/go-filmorate-backend/internal/http/middleware"
	"github.com/tbourn/go-filmorate-backend/internal/services"
	"github.com/tbourn/go-filmorate-backend/internal/storage"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Services bundles the application services built for a store. The
// idempotency service is exposed so the caller can run its janitor.
type Services struct {
	Users       *services.UserService
	Films       *services.FilmService
	References  *services.ReferenceService
	Idempotency *services.IdempotencyService
}

// NewServices builds the application services on top of store.
func NewServices(store storage.Store, cfg config.Config) *Services {
	return &Services{
		Users:       services.NewUserService(store),
		Films:       services.NewFilmService(store),
		References:  &services.ReferenceService{Store: store},
		Idempotency: &services.IdempotencyService{Store: store, TTL: cfg.IdempotencyTTL},
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the filmorate API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. CORS and security headers
//  10. Optional gzip
func RegisterRoutes(r *gin.Engine, svc *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, svc.Idempotency.Lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/swagger"})))
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc.Users, svc.Films, svc.References,
		handlers.WithIdempotency(svc.Idempotency),
		handlers.WithPopularDefault(cfg.PopularDefaultCount),
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Users
		api.POST("/users", h.CreateUser)
		api.PUT("/users", h.UpdateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.DELETE("/users/:id", h.DeleteUser)

		// Friends
		api.PUT("/users/:id/friends/:friendId", h.AddFriend)
		api.DELETE("/users/:id/friends/:friendId", h.RemoveFriend)
		api.GET("/users/:id/friends", h.ListFriends)
		api.GET("/users/:id/friends/common/:otherId", h.CommonFriends)

		// Films
		api.POST("/films", h.CreateFilm)
		api.PUT("/films", h.UpdateFilm)
		api.GET("/films", h.ListFilms)
		api.GET("/films/popular", h.PopularFilms)
		api.GET("/films/:id", h.GetFilm)
		api.DELETE("/films/:id", h.DeleteFilm)

		// Likes
		api.PUT("/films/:id/like/:userId", h.AddLike)
		api.DELETE("/films/:id/like/:userId", h.RemoveLike)

		// Reference data
		api.GET("/genres", h.ListGenres)
		api.GET("/genres/:id", h.GetGenre)
		api.GET("/mpa", h.ListRatings)
		api.GET("/mpa/:id", h.GetRating)
	}
}

// useCORS installs the CORS posture. With no configured origins every origin
// is allowed; otherwise allowed origins are echoed back.
func useCORS(r *gin.Engine, cc config.CORSConfig) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(cc.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header, so health checks see it too.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(cc.AllowedOrigins))
	for _, o := range cc.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = cc.AllowedOrigins
	r.Use(cors.New(base))
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
