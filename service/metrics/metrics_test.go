package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRedemptionCheck(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRedemptionCheck("main", true, "redeemed")
	m.RecordRedemptionCheck("main", false, "insufficient_redemption")
	m.RecordRedemptionCheck("main", false, "insufficient_redemption")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptionChecksTotal.WithLabelValues("main", "verified", "redeemed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.redemptionChecksTotal.WithLabelValues("main", "rejected", "insufficient_redemption")))
}

func TestRecordRegistrySize(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRegistrySize("test", 12, 3)
	assert.Equal(t, 12.0, testutil.ToFloat64(m.registryRecords.WithLabelValues("test")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.registryTransactions.WithLabelValues("test")))

	m.RecordRegistrySize("test", 0, 0)
	assert.Zero(t, testutil.ToFloat64(m.registryRecords.WithLabelValues("test")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := HTTPMetricsMiddleware(m, "/api/v1/coins")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/coins/x", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/v1/coins", "GET", "4xx")))
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(204))
	assert.Equal(t, "3xx", statusCodeToString(304))
	assert.Equal(t, "4xx", statusCodeToString(404))
	assert.Equal(t, "5xx", statusCodeToString(503))
	assert.Equal(t, "unknown", statusCodeToString(99))
}
