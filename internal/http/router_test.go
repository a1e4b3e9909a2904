package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-filmorate-backend/internal/config"
	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/http/middleware"
	"github.com/tbourn/go-filmorate-backend/internal/storage/memory"
)

func testConfig(base string) config.Config {
	return config.Config{
		APIBasePath:         base,
		RateRPS:             100,
		RateBurst:           100,
		PopularDefaultCount: 10,
		IdempotencyTTL:      time.Hour,
		CORS:                config.CORSConfig{AllowedOrigins: nil},
		Security:            config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:                config.OTELConfig{ServiceName: "filmorate-test"},
	}
}

func newRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	t.Cleanup(func() { _ = store.Close() })

	r := gin.New()
	RegisterRoutes(r, NewServices(store, cfg), cfg)
	return r
}

func serve(r *gin.Engine, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, testConfig("/"))

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = serve(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = serve(r, http.MethodPost, "/health", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig("/api")
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r := newRouter(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_FilmorateFlow(t *testing.T) {
	r := newRouter(t, testConfig("/"))

	w := serve(r, http.MethodPost, "/users", `{"email":"a@example.com","login":"alice","birthday":"1990-01-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create user = %d: %s", w.Code, w.Body.String())
	}
	var u domain.UserView
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if u.ID != 1 || u.Name != "alice" {
		t.Fatalf("unexpected user: %+v", u)
	}

	w = serve(r, http.MethodPost, "/films", `{"name":"Alien","description":"space","releaseDate":"1979-05-25","duration":117,"mpa":{"id":4},"genres":[{"id":6},{"id":6}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create film = %d: %s", w.Code, w.Body.String())
	}

	if w = serve(r, http.MethodPut, "/films/1/like/1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("like = %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/films/popular?count=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("popular = %d", w.Code)
	}
	var top []domain.FilmView
	if err := json.Unmarshal(w.Body.Bytes(), &top); err != nil {
		t.Fatalf("decode popular: %v", err)
	}
	if len(top) != 1 || top[0].ID != 1 || len(top[0].Likes) != 1 || len(top[0].Genres) != 1 {
		t.Fatalf("unexpected popular: %+v", top)
	}

	if w = serve(r, http.MethodGet, "/genres", ""); w.Code != http.StatusOK {
		t.Fatalf("genres = %d", w.Code)
	}
	if w = serve(r, http.MethodGet, "/mpa/1", ""); w.Code != http.StatusOK {
		t.Fatalf("mpa/1 = %d", w.Code)
	}
}

func TestRegisterRoutes_BasePath(t *testing.T) {
	r := newRouter(t, testConfig("/api/v1"))

	if w := serve(r, http.MethodGet, "/api/v1/users", ""); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/users = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/users", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET /users outside base path = %d, want 404", w.Code)
	}
}

func TestRegisterRoutes_IdempotentCreateReplays(t *testing.T) {
	r := newRouter(t, testConfig("/"))

	body := `{"email":"b@example.com","login":"bob","birthday":"1985-02-03"}`
	w := serve(r, http.MethodPost, "/users", body, middleware.HeaderIdempotencyKey, "create-bob-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("first create = %d: %s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodPost, "/users", body, middleware.HeaderIdempotencyKey, "create-bob-1")
	if w.Code != http.StatusOK {
		t.Fatalf("replay = %d: %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodGet, "/users", "")
	var all []domain.UserView
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("replay created a second user: %+v", all)
	}
}

func TestRegisterRoutes_RateLimitExemptsHealth(t *testing.T) {
	cfg := testConfig("/")
	cfg.RateRPS = 1
	cfg.RateBurst = 1
	r := newRouter(t, cfg)

	for i := 0; i < 5; i++ {
		if w := serve(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
			t.Fatalf("health #%d = %d", i, w.Code)
		}
	}

	if w := serve(r, http.MethodGet, "/genres", ""); w.Code != http.StatusOK {
		t.Fatalf("first /genres = %d", w.Code)
	}
	w := serve(r, http.MethodGet, "/genres", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second /genres = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}
}

func TestRegisterRoutes_GzipWhenEnabled(t *testing.T) {
	cfg := testConfig("/")
	cfg.GzipEnabled = true
	r := newRouter(t, cfg)

	w := serve(r, http.MethodGet, "/genres", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /genres = %d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig("/")
	cfg.SwaggerEnabled = true
	r := newRouter(t, cfg)

	w := serve(r, http.MethodGet, "/swagger/doc.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/films/popular") {
		t.Fatalf("swagger doc missing popular route")
	}

	off := newRouter(t, testConfig("/"))
	if w := serve(off, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: got %d, want 404", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s = %d %q", path, w.Code, w.Body.String())
		}
	}
}
