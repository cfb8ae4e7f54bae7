package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBundle lays out a minimal built SPA: index.html plus one hashed asset.
func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte(`<!DOCTYPE html><html><body>storefront</body></html>`), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app-4f2a.css"),
		[]byte(`body { color: red; }`), 0o644))
	return dir
}

func spaRouter(dir string) *gin.Engine {
	r := gin.New()
	r.NoRoute(ServeSPA("/", dir))
	return r
}

func TestServeSPA(t *testing.T) {
	dir := writeBundle(t)

	get := func(t *testing.T, path string) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, path, nil)
		require.NoError(t, err)
		spaRouter(dir).ServeHTTP(w, req)
		return w
	}

	t.Run("serves an existing asset with an immutable cache header", func(t *testing.T) {
		w := get(t, "/assets/app-4f2a.css")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "color: red")
		assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
	})

	t.Run("serves index.html at the root with revalidation", func(t *testing.T) {
		w := get(t, "/")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "storefront")
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-cache")
	})

	t.Run("falls back to index.html for client-side routes", func(t *testing.T) {
		w := get(t, "/courses/42/reviews")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "storefront")
		assert.Contains(t, w.Header().Get("Cache-Control"), "no-cache")
	})
}

func TestServeSPAMissingBundle(t *testing.T) {
	r := gin.New()
	r.NoRoute(ServeSPA("/", filepath.Join(t.TempDir(), "missing")))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
}
