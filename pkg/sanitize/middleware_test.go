package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingAuditor struct {
	method, path, ip, payload string
	calls                     int
}

func (r *recordingAuditor) SuspiciousRequest(_ context.Context, method, path, ip, payload string) {
	r.calls++
	r.method, r.path, r.ip, r.payload = method, path, ip, payload
}

func newTestRouter(t *testing.T, auditor Auditor) (*gin.Engine, *Middleware) {
	t.Helper()
	m := NewMiddleware(zaptest.NewLogger(t).Sugar(), auditor)
	r := gin.New()
	return r, m
}

func TestRejectSuspicious(t *testing.T) {
	t.Run("rejects DROP TABLE in the body before any handler runs", func(t *testing.T) {
		auditor := &recordingAuditor{}
		r, m := newTestRouter(t, auditor)
		handlerRan := false
		r.POST("/courses", m.RejectSuspicious(), m.CleanRequest(), func(c *gin.Context) {
			handlerRan = true
			c.Status(http.StatusOK)
		})

		body := `{"name":"x","query":"DROP TABLE courses"}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:4711"
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, handlerRan)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["error"])
		assert.Equal(t, "BAD_REQUEST", resp["code"])

		require.Equal(t, 1, auditor.calls)
		assert.Equal(t, http.MethodPost, auditor.method)
		assert.Equal(t, "/courses", auditor.path)
		assert.Equal(t, "203.0.113.9", auditor.ip)
		assert.Contains(t, auditor.payload, "DROP TABLE")
	})

	t.Run("rejects keywords in query parameters", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		r.GET("/search", m.RejectSuspicious(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/search?q=select+*+from+users", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("passes clean requests through with the body intact", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		var seen map[string]any
		r.POST("/courses", m.RejectSuspicious(), func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&seen))
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewBufferString(`{"title":"Baking 101"}`))
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Baking 101", seen["title"])
	})

	t.Run("does not flag a field name joined with underscore", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		r.POST("/forms", m.RejectSuspicious(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/forms", bytes.NewBufferString(`{"select_option":"b"}`))
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCleanRequest(t *testing.T) {
	t.Run("rewrites the JSON body through the cleaner", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		var seen map[string]any
		r.POST("/courses", m.CleanRequest(), func(c *gin.Context) {
			require.NoError(t, c.ShouldBindJSON(&seen))
			c.Status(http.StatusOK)
		})

		body := `{"title":"  Intro <script>alert(1)</script> ","tags":["a","<iframe></iframe>b"]}`
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewBufferString(body))
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Intro", seen["title"])
		tags := seen["tags"].([]any)
		require.Len(t, tags, 2)
		assert.Equal(t, "b", tags[1])
	})

	t.Run("rewrites query string values", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		var got string
		r.GET("/search", m.CleanRequest(), func(c *gin.Context) {
			got = c.Query("q")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/search?q=javascript:alert(1)", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alert(1)", got)
	})

	t.Run("rewrites route parameters", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		var got string
		r.GET("/courses/:name", m.CleanRequest(), func(c *gin.Context) {
			got = c.Param("name")
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/courses/javascript:hack", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hack", got)
	})

	t.Run("leaves non-JSON bodies untouched", func(t *testing.T) {
		r, m := newTestRouter(t, nil)
		var got []byte
		r.POST("/upload", m.CleanRequest(), func(c *gin.Context) {
			got, _ = io.ReadAll(c.Request.Body)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/upload", bytes.NewBufferString("plain <script> text"))
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "plain <script> text", string(got))
	})
}
