package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisedmundo354/latex-render-api/internal/compile"
	"github.com/luisedmundo354/latex-render-api/internal/config"
	"github.com/luisedmundo354/latex-render-api/internal/observability"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Auth.APIKey = "s3cret"

	logger := observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "json",
		Output:      io.Discard,
		ServiceName: "test",
	})
	return NewRouter(logger, cfg, nil, compile.New(logger, compile.Config{}))
}

func TestNewRouter_HealthIsUnauthenticated(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestNewRouter_APIRoutesRequireKey(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/presign", "/compile"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "path %s", path)
	}
}

func TestNewRouter_AuthedPresignReportsMissingStorage(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/presign", nil)
	req.Header.Set("X-Api-Key", "s3cret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "storage not configured"}`, rec.Body.String())
}
