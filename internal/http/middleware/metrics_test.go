package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMetricsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/films/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "name": "Alien"})
	})
	r.PUT("/films/:id/like/:userId", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	r := newMetricsRouter()

	cases := []struct {
		method, url   string
		label, status string
		wantCode      int
	}{
		{http.MethodGet, "/films/1", "/films/:id", "200", http.StatusOK},
		{http.MethodGet, "/films/2", "/films/:id", "200", http.StatusOK},
		{http.MethodPut, "/films/1/like/9", "/films/:id/like/:userId", "204", http.StatusNoContent},
		{http.MethodGet, "/shows/1", "unmatched", "404", http.StatusNotFound},
	}

	// Baselines: counters are process-global and shared with other tests.
	base := make(map[[3]string]float64)
	for _, tc := range cases {
		k := [3]string{tc.method, tc.label, tc.status}
		base[k] = testutil.ToFloat64(httpReqs.WithLabelValues(k[0], k[1], k[2]))
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.url, nil))
		if w.Code != tc.wantCode {
			t.Fatalf("%s %s -> %d, want %d", tc.method, tc.url, w.Code, tc.wantCode)
		}
	}

	want := make(map[[3]string]float64)
	for _, tc := range cases {
		want[[3]string{tc.method, tc.label, tc.status}]++
	}
	for k, n := range want {
		got := testutil.ToFloat64(httpReqs.WithLabelValues(k[0], k[1], k[2]))
		if got != base[k]+n {
			t.Fatalf("requests%v = %v, want %v", k, got, base[k]+n)
		}
	}

	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_ResponseSizeSkipsEmptyBodies(t *testing.T) {
	r := newMetricsRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/films/5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /films/5 -> %d", w.Code)
	}
	if n := testutil.CollectAndCount(httpRespSize, "filmorate_http_response_size_bytes"); n == 0 {
		t.Fatalf("expected a response size series after a body was written")
	}

	// Unwritten 204 bodies report size -1 and must not add a series.
	before := testutil.CollectAndCount(httpRespSize)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/films/5/like/1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("PUT like -> %d", w.Code)
	}
	if after := testutil.CollectAndCount(httpRespSize); after != before {
		t.Fatalf("response size series %d -> %d after empty 204", before, after)
	}

	lat := testutil.CollectAndCount(httpLat, "filmorate_http_request_duration_seconds")
	if lat == 0 {
		t.Fatalf("expected latency series")
	}
}
