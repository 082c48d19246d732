package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wikid82/logwarden/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	return router
}

func TestRequestIDAddsHeaderAndLogger(t *testing.T) {
	logger.Init(true, &bytes.Buffer{})
	router := newRouter()
	router.GET("/test", func(c *gin.Context) {
		_, ok := c.Get(loggerKey)
		assert.True(t, ok, "request-scoped logger in context")
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDReusesValidInboundID(t *testing.T) {
	logger.Init(true, &bytes.Buffer{})
	router := newRouter()
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	const inbound = "7f0c3a52-3c1e-4b4f-9d5c-8c2c4f0b9a11"
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, inbound, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "forged\nid")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, "forged\nid", w.Header().Get(RequestIDHeader))
}

func TestRequestLoggerWritesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)
	router := newRouter()
	router.GET("/api/v1/alerts", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts?active=true", nil))

	out := buf.String()
	assert.Contains(t, out, `"path":"/api/v1/alerts"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, "request_id")
}

func TestRecoveryLogsStacktraceVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(true, buf)

	router := gin.New()
	router.Use(RequestID(), Recovery(true))
	router.GET("/panic", func(c *gin.Context) { panic("test panic") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	out := buf.String()
	assert.Contains(t, out, "PANIC: test panic")
	assert.Contains(t, out, "Stacktrace:")
	assert.Contains(t, out, "request_id")
}

func TestRecoveryLogsBriefWhenNotVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	logger.Init(false, buf)

	router := gin.New()
	router.Use(RequestID(), Recovery(false))
	router.GET("/panic", func(c *gin.Context) { panic("brief panic") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "PANIC: brief panic")
	assert.NotContains(t, buf.String(), "Stacktrace:")
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("User-Agent", "curl\r\nInjected: yes")

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"curl Injected: yes"}, out["User-Agent"])
	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/alerts", SanitizePath("/api/v1/alerts?token=abc"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
}
