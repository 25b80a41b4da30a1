package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/alertdesk/internal/version"
)

func TestResolveOpenAPIPath(t *testing.T) {
	p := ResolveOpenAPIPath()
	_, err := os.Stat(p)
	require.NoError(t, err, "resolved path %s", p)

	override := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(override, []byte("openapi: 3.0.3\n"), 0o600))
	t.Setenv("ALERTDESK_OPENAPI_PATH", override)
	assert.Equal(t, override, ResolveOpenAPIPath())
}

func TestGetOpenAPISpec(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/openapi.json", GetOpenAPISpec)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, version.Version, doc.Info.Version)
	assert.Contains(t, doc.Paths, "/api/v1/views/incidents/{pk}")
}
