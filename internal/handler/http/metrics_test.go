package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed-ledger/internal/observability/metrics"
)

func TestMetricsMiddleware_PathNormalization(t *testing.T) {
	metrics.HTTPRequestsTotal.Reset()
	metrics.HTTPRequestDuration.Reset()

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/deliveries/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))

	tests := []struct {
		method       string
		path         string
		expectedPath string
		status       string
	}{
		{http.MethodGet, "/deliveries/abc-123", "/deliveries/:id", "200"},
		{http.MethodGet, "/deliveries/missing", "/deliveries/:id", "404"},
		{http.MethodPost, "/feeds/feed-1/deliveries", "/feeds/:feedID/deliveries", "200"},
		{http.MethodGet, "/deliveries/count", "/deliveries/count", "200"},
		{http.MethodGet, "/attempts/latest", "/attempts/latest", "200"},
		{http.MethodGet, "/wp-admin/login.php", "other", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(tt.method, tt.expectedPath, tt.status))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))
			after := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(tt.method, tt.expectedPath, tt.status))
			assert.Equal(t, before+1, after)
		})
	}
}

func TestMetricsHandler_ServesRegistry(t *testing.T) {
	metrics.RecordAttempt("OK")

	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ledger_attempts_recorded_total")
}
