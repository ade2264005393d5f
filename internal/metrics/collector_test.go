package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.ObserveAssessment("REPLACE_NOW", "containment_breach", 0, time.Millisecond)
	c.ObserveAssessment("REPLACE_NOW", "containment_breach", 0, time.Millisecond)
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheLookup(false)
	c.PriceLookup("static")
	c.SeedResult("anthropic", nil)
	c.SeedResult("anthropic", errors.New("boom"))
	c.APISpend("anthropic", 0.25)
	c.APISpend("anthropic", -1)
	c.Guidance(true)
	c.Notification("webhook", nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.assessments.WithLabelValues("REPLACE_NOW", "containment_breach")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.assessmentCache.WithLabelValues("hit")), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(c.assessmentCache.WithLabelValues("miss")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.priceLookups.WithLabelValues("static")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.seedResults.WithLabelValues("anthropic", "error")), 0.001)
	assert.InDelta(t, 0.25, testutil.ToFloat64(c.apiSpend.WithLabelValues("anthropic")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.guidanceCalls.WithLabelValues("fallback")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.notifications.WithLabelValues("webhook", "ok")), 0.001)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveAssessment("PASS", "healthy", 100, time.Millisecond)
		c.CacheLookup(true)
		c.PriceLookup("cache")
		c.SeedResult("perplexity", nil)
		c.APISpend("perplexity", 1)
		c.Guidance(false)
		c.Notification("store", nil)
		c.HTTPRequest("/health", http.MethodGet, 200, time.Millisecond)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.HTTPRequest("/v1/assess", http.MethodPost, 200, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `opterra_http_requests_total{code="200",method="POST",route="/v1/assess"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewCollector_Independent(t *testing.T) {
	// Two collectors in one process must not panic on duplicate registration.
	a, b := NewCollector(), NewCollector()
	a.PriceLookup("cache")
	assert.InDelta(t, 0, testutil.ToFloat64(b.priceLookups.WithLabelValues("cache")), 0.001)
}
