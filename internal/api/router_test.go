package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitegen/internal/database"
)

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/", "/health"} {
		rec := s.do(http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"ok","service":"AI Builder API"}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/health", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sitegen_http_requests_total")
}

func TestCORS_AllowListWithCredentials(t *testing.T) {
	cfg := corsConfig([]string{"https://app.example.com"})
	assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowOrigins)
	assert.True(t, cfg.AllowCredentials)
	assert.Nil(t, cfg.AllowOriginFunc)

	open := corsConfig(nil)
	require.NotNil(t, open.AllowOriginFunc)
	assert.True(t, open.AllowOriginFunc("http://localhost:5173"))
}

func TestCORS_PreflightFromFrontend(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestProfile_CreatedOnFirstSightThenSynced(t *testing.T) {
	s := newTestServer(t)
	token := s.token("0b7c6f5e-8a61-4a53-9a57-6f1d1a3c2b10")

	rec := s.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decodeJSON[database.Profile](t, rec)
	assert.Equal(t, 10, profile.Credits)
	assert.Equal(t, database.RoleUser, profile.Role)

	rec = s.do(http.MethodPut, "/api/auth/profile", token, map[string]string{
		"full_name":  "Grace Hopper",
		"avatar_url": "https://img.example.com/grace.png",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile = decodeJSON[database.Profile](t, rec)
	assert.Equal(t, "Grace Hopper", profile.FullName)
	assert.Equal(t, 10, profile.Credits)

	rec = s.do(http.MethodPut, "/api/auth/profile", token, map[string]string{"avatar_url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
