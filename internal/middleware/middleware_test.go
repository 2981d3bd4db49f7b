package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(log *logrus.Logger, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(log))
	r.Use(mw...)
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestErrorResponder(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log, ErrorResponder(), Recovery())
	r.GET("/missing", func(c *gin.Context) { Fail(c, apperr.NotFound("User with ID 9 not found")) })
	r.GET("/invalid", func(c *gin.Context) { Fail(c, apperr.BadRequest("Bad Request", "Email is required")) })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "User with ID 9 not found", body["message"])
	assert.Equal(t, "Not Found", body["error"])
	assert.Equal(t, float64(404), body["statusCode"])

	w = do(r, http.MethodGet, "/invalid", nil)
	assert.Equal(t, []any{"Email is required"}, decode(t, w)["message"])

	w = do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["message"])
}

func TestErrorEnvelope(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newEngine(log, ErrorEnvelope())
	r.GET("/users/test-error", func(c *gin.Context) { Fail(c, apperr.BadRequest("This is a test error!")) })
	r.GET("/users/test-crash", func(c *gin.Context) { Fail(c, errors.New("Something went wrong unexpectedly!")) })

	w := do(r, http.MethodGet, "/users/test-error?x=1", map[string]string{RequestIDHeader: "req-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "This is a test error!", body["message"])
	assert.Equal(t, "req-1", body["requestId"])
	assert.Equal(t, "/users/test-error?x=1", body["path"])
	assert.NotEmpty(t, body["timestamp"])

	var logged bool
	for _, e := range hook.AllEntries() {
		if e.Message == "request failed" && e.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	assert.True(t, logged, "expected failure to be logged")

	w = do(r, http.MethodGet, "/users/test-crash", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["message"])
}

func TestRequestIDGenerated(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	w := do(r, http.MethodGet, "/", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
}

func TestRequestIDFromHeader(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newEngine(log)
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })

	w := do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123_x.y"})
	assert.Equal(t, "abc-123_x.y", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123_x.y", hook.LastEntry().Data["request_id"])

	for _, bad := range []string{
		"has space",
		"line\nbreak",
		`{"forged":"json"}`,
		strings.Repeat("a", 129),
	} {
		w = do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: bad})
		got := w.Header().Get(RequestIDHeader)
		assert.NotEqual(t, bad, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err, "replacement for %q should be a uuid", bad)
		assert.Equal(t, got, hook.LastEntry().Data["request_id"])
	}

	w = do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: strings.Repeat("b", 128)})
	assert.Equal(t, strings.Repeat("b", 128), w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log, CORS(CORSOptions{Origins: []string{"http://localhost:3000"}, Credentials: true}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/health", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = do(r, http.MethodGet, "/health", map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodOptions, "/health", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	w = do(r, http.MethodOptions, "/health", map[string]string{
		"Origin":                        "https://evil.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSAllowAll(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log, CORS(CORSOptions{AllowAll: true}))
	r.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/users", map[string]string{"Origin": "https://anything.example"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log, SecurityHeaders())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/health", nil)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "max-age=31536000; includeSubDomains; preload", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRateLimiter(t *testing.T) {
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(2, time.Minute)
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	r := newEngine(log, rl.Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("x-ratelimit-limit"))
	assert.Equal(t, "1", w.Header().Get("x-ratelimit-remaining"))

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("x-ratelimit-remaining"))

	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("retry-after"))
	assert.Equal(t, "60", w.Header().Get("x-ratelimit-reset"))
	body := decode(t, w)
	assert.Equal(t, "Rate limit exceeded, retry in 60 seconds.", body["message"])
	assert.Equal(t, float64(60), body["expiresIn"])
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, float64(fixed.UnixMilli()), body["date"])
}

func TestRateLimiterWindowCap(t *testing.T) {
	log, _ := test.NewNullLogger()
	rl := NewRateLimiter(100, time.Minute)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }

	r := newEngine(log, rl.Middleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	// 400 requests spread evenly over the first 59.6s of the window.
	admitted := 0
	for i := 0; i < 400; i++ {
		now = start.Add(time.Duration(i) * 149 * time.Millisecond)
		if do(r, http.MethodGet, "/health", nil).Code == http.StatusOK {
			admitted++
		}
	}
	assert.Equal(t, 100, admitted)

	now = start.Add(45 * time.Second)
	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "15", w.Header().Get("retry-after"))
	assert.Equal(t, "15", w.Header().Get("x-ratelimit-reset"))

	now = start.Add(time.Minute)
	w = do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "99", w.Header().Get("x-ratelimit-remaining"))
	assert.Equal(t, "60", w.Header().Get("x-ratelimit-reset"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.hit("10.0.0.1", start)
	rl.hit("10.0.0.2", start.Add(50*time.Second))

	rl.now = func() time.Time { return start.Add(90 * time.Second) }
	assert.Equal(t, 1, rl.Sweep(time.Minute))
	assert.Len(t, rl.clients, 1)
}

func TestSimpleAuth(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := newEngine(log, SimpleAuth())
	r.GET("/secret", func(c *gin.Context) {
		user, _ := c.Get(UserKey)
		c.JSON(http.StatusOK, gin.H{"user": user})
	})

	w := do(r, http.MethodGet, "/secret", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Please login first!", decode(t, w)["message"])

	w = do(r, http.MethodGet, "/secret", map[string]string{"Authorization": "Bearer anything"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"id": float64(1), "name": "John Doe"}, decode(t, w)["user"])
}

func TestResponseAnalyzer(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newEngine(log, ResponseAnalyzer())
	r.POST("/users", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"name": "Folk", "email": "folk@example.com", "password": "hunter22"})
	})
	r.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"email": "folk@example.com"}})
	})

	w := do(r, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "password")
	debug, ok := body["_debug"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ResponseAnalyzerInterceptor", debug["processedBy"])
	assert.Regexp(t, `^req_\d+$`, debug["requestId"])

	w = do(r, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"email":"folk@example.com"}]`, w.Body.String())

	var analysed int
	for _, e := range hook.AllEntries() {
		if e.Message == "response analysis" {
			analysed++
		}
	}
	assert.Equal(t, 2, analysed)
}

func TestExplainKeepsResponse(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := newEngine(log, Explain())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "Hello World!") })

	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, "Hello World!", w.Body.String())

	var steps int
	for _, e := range hook.AllEntries() {
		if len(e.Message) > 5 && e.Message[:5] == "step " {
			steps++
		}
	}
	assert.Equal(t, 3, steps)
}
