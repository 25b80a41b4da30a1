package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/alertdesk/internal/version"
)

// ResolveOpenAPIPath finds openapi.yaml from the repo root or from a test
// working directory. ALERTDESK_OPENAPI_PATH wins when it points at a file.
func ResolveOpenAPIPath() string {
	if p := os.Getenv("ALERTDESK_OPENAPI_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	candidates := []string{
		"api/openapi.yaml",
		filepath.FromSlash("../../api/openapi.yaml"),
		filepath.FromSlash("../../../api/openapi.yaml"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "api/openapi.yaml"
}

// GET /api/openapi.json
func GetOpenAPISpec(c *gin.Context) {
	data, err := os.ReadFile(ResolveOpenAPIPath())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load openapi.yaml", "code": "internal_error"})
		return
	}
	var obj map[string]any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to parse openapi.yaml", "code": "internal_error"})
		return
	}
	if info, ok := obj["info"].(map[string]any); ok {
		info["version"] = version.Version
	}
	c.JSON(http.StatusOK, obj)
}
