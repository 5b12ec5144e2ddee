package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterHandle_BlocksWithinWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now: func() time.Time {
			return now
		},
	}

	c1, _ := gin.CreateTestContext(httptest.NewRecorder())
	c1.Request = httptest.NewRequest("POST", "/api/v1/upload-csv", nil)
	c1.Set(ContextSessionKey, "s1")
	limiter.handle(c1)
	require.False(t, c1.IsAborted())

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest("POST", "/api/v1/upload-csv", nil)
	c2.Set(ContextSessionKey, "s1")
	limiter.handle(c2)
	require.True(t, c2.IsAborted())

	c3, _ := gin.CreateTestContext(httptest.NewRecorder())
	c3.Request = httptest.NewRequest("POST", "/api/v1/upload-csv", nil)
	c3.Set(ContextSessionKey, "s2")
	limiter.handle(c3)
	require.False(t, c3.IsAborted())

	now = now.Add(11 * time.Second)
	c4, _ := gin.CreateTestContext(httptest.NewRecorder())
	c4.Request = httptest.NewRequest("POST", "/api/v1/upload-csv", nil)
	c4.Set(ContextSessionKey, "s1")
	limiter.handle(c4)
	require.False(t, c4.IsAborted())
}

func TestRateLimiterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := RateLimit(0)
	for i := 0; i < 3; i++ {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/api/v1/upload-csv", nil)
		handler(c)
		require.False(t, c.IsAborted())
	}
}

func TestRateLimiterCleanupExpiredLocked_RemovesExpiredEntries(t *testing.T) {
	base := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now:           time.Now,
	}
	limiter.last["expired"] = base.Add(-20 * time.Second)
	limiter.last["active"] = base.Add(-2 * time.Second)

	limiter.mu.Lock()
	limiter.cleanupExpiredLocked(base)
	limiter.mu.Unlock()

	require.NotContains(t, limiter.last, "expired")
	require.Contains(t, limiter.last, "active")
	require.False(t, limiter.lastSweep.IsZero())
}

func TestSessionAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest("GET", "/api/v1/indices?session_id=abc", nil)
	Session()(c)
	RequestID()(c)
	require.Equal(t, "abc", SessionFromContext(c))
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest("GET", "/api/v1/indices?session_id=abc", nil)
	c2.Request.Header.Set(SessionHeader, " fromheader ")
	c2.Request.Header.Set(RequestIDHeader, "req-1")
	Session()(c2)
	RequestID()(c2)
	require.Equal(t, "fromheader", SessionFromContext(c2))
	v, _ := c2.Get(ContextRequestIDKey)
	require.Equal(t, "req-1", v)
}

func formUpload(t *testing.T, sessionID string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField(SessionParam, sessionID))
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-csv", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRateLimiterKeysFormOnlySessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Now()
	limiter := &rateLimiter{
		window:        10 * time.Second,
		last:          make(map[string]time.Time),
		sweepInterval: 10 * time.Second,
		now:           func() time.Time { return now },
	}
	run := func(sessionID string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = formUpload(t, sessionID)
		limiter.handle(c)
		return c
	}

	require.False(t, run("s1").IsAborted())
	require.False(t, run("s2").IsAborted())
	require.True(t, run("s1").IsAborted())
	require.Contains(t, limiter.last, "192.0.2.1|s1|/api/v1/upload-csv")
	require.NotContains(t, limiter.last, "192.0.2.1|-|/api/v1/upload-csv")
}

func TestBodyLimitRejectsOversizedForms(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var formErr error
	r.POST("/upload", BodyLimit(1), func(c *gin.Context) {
		_, formErr = c.FormFile("file")
		c.Status(http.StatusOK)
	})

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "big.csv")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("a,b\n"), MultipartOverhead))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	r.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	require.ErrorAs(t, formErr, &maxErr)
}

func TestCORSPolicy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serve := func(allowlist []string, method, origin string) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(CORS(allowlist))
		r.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(method, "/api/v1/health", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := serve(nil, http.MethodGet, "http://any.example")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), SessionHeader)

	allow := []string{" http://app.example "}
	w = serve(allow, http.MethodOptions, "http://app.example")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	w = serve(allow, http.MethodGet, "http://evil.example")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
