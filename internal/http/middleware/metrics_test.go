package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters_Histograms_InflightAndUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("simulation"))

	// Route with body → positive size (observed)
	r.GET("/phishing/track/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "hello")
	})

	// Route with status only → size stays -1 (skipped in size histogram)
	r.GET("/statusonly", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Baselines before we hit the routes (to avoid interference from other tests)
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", "/phishing/track/:id", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", unmatchedPath, "404"))

	for _, path := range []string{"/phishing/track/a", "/phishing/track/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s -> %d", path, w.Code)
		}
	}

	// Missing routes collapse into a single series.
	for _, path := range []string{"/guess-1", "/guess-2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("GET %s -> %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statusonly", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("GET /statusonly -> %d", w.Code)
	}

	// --- Assertions ---

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", "/phishing/track/:id", "200")); got != baseOK+2 {
		t.Fatalf("counter track 200 = %v; want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", unmatchedPath, "404")); got != base404+2 {
		t.Fatalf("counter unmatched 404 = %v; want %v", got, base404+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", "/guess-1", "404")); got != 0 {
		t.Fatalf("raw path leaked into labels: %v", got)
	}

	// In-flight gauge should be 0 after requests complete
	if inFlight := testutil.ToFloat64(httpInflight.WithLabelValues("simulation")); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_ServicesAreSeparated(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("management"))
	r.GET("/phishing", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	baseSim := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", "/phishing", "200"))
	baseMgmt := testutil.ToFloat64(httpReqs.WithLabelValues("management", "GET", "/phishing", "200"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/phishing", nil))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("management", "GET", "/phishing", "200")); got != baseMgmt+1 {
		t.Fatalf("management counter = %v; want %v", got, baseMgmt+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("simulation", "GET", "/phishing", "200")); got != baseSim {
		t.Fatalf("simulation counter moved: %v", got)
	}
}
