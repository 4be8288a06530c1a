package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feed-ledger/internal/config"
	"feed-ledger/internal/handler/http/requestid"
	"feed-ledger/internal/infra/db"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	database, err := db.OpenMemorySQLite(t.Context())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	cfg := config.Default()
	cfg.Database.Driver = db.DriverSQLite

	a, err := newApp(&cfg, database, slog.New(slog.NewTextHandler(io.Discard, nil)), prometheus.NewRegistry())
	require.NoError(t, err)
	return a
}

func TestApp_APIRoundTrip(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.apiHandler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/attempts", "application/json",
		strings.NewReader(`{"url":"https://rss-feed.com/feed.xml","status":"OK"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestid.RequestIDHeader))

	resp, err = http.Get(srv.URL + "/deliveries/unknown")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_OpsEndpoints(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.opsHandler)
	defer srv.Close()

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestNewRepos_UnknownDriver(t *testing.T) {
	_, _, err := newRepos("mysql", nil)
	assert.Error(t, err)
}
