package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleet-logbook/backend/internal/middleware"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

const dashboard = "http://localhost:5173"

func TestCORSHandler_AllowedOrigin(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Origin", dashboard)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dashboard, rec.Header().Get("Access-Control-Allow-Origin"))
}

// PATCH is used by the driver app for trip and checklist edits.
func TestCORSHandler_PreflightPatch(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/session/trip", nil)
	req.Header.Set("Origin", dashboard)
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	// rs/cors compares request headers in lowercase, as browsers send them.
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, rec.Code == http.StatusNoContent || rec.Code == http.StatusOK,
		"expected 2xx for preflight, got %d", rec.Code)
	assert.Equal(t, dashboard, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestCORSHandler_DisallowedOrigin(t *testing.T) {
	h := middleware.NewCORSHandler([]string{dashboard})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
