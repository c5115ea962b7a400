package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveHTTP("/check-mobile", http.MethodGet, 200, 5*time.Millisecond)
	c.ObserveHTTP("/check-mobile", http.MethodGet, 200, 5*time.Millisecond)
	c.ObserveStoreOp("create", "conflict", time.Millisecond)
	c.RecordLogin("rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("/check-mobile", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeOps.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.logins.WithLabelValues("rejected")))
}

func TestHandler_exposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("success")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recharge_admin_logins_total{outcome="success"} 1`)
}
