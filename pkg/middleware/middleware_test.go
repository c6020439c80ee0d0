package middleware

import (
	"bridge/waitlist-api/pkg/ratelimit"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.Any("/", func(c *gin.Context) {
		if c.Request.Body != nil {
			if _, err := io.ReadAll(c.Request.Body); err != nil {
				c.AbortWithStatus(http.StatusRequestEntityTooLarge)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "requestID": c.GetString("requestID")})
	})

	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	return body.Message
}

func TestRequestID(t *testing.T) {
	r := newEngine(NewRequestIDMiddleware())

	w1 := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	w2 := do(r, httptest.NewRequest(http.MethodGet, "/", nil))

	id1 := w1.Header().Get(RequestIDHeader)
	id2 := w2.Header().Get(RequestIDHeader)

	assert.Len(t, id1, 16)
	assert.NotEqual(t, id1, id2)
	assert.Contains(t, w1.Body.String(), id1)
}

func TestBodySizeLimiter(t *testing.T) {
	r := newEngine(BodySizeLimiter(16))

	w := do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 17))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", message(t, w))
}

func TestBodySizeLimiter_UndeclaredLength(t *testing.T) {
	r := newEngine(BodySizeLimiter(16))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1

	w := do(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRateLimiterMiddleware(t *testing.T) {
	r := newEngine(RateLimiterMiddleware(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2}))

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", message(t, w))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, do(r, other).Code)
}

func TestRateLimiterMiddleware_Disabled(t *testing.T) {
	r := newEngine(RateLimiterMiddleware(RateLimiterConfig{}))

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestWindowLimiterMiddleware(t *testing.T) {
	l := ratelimit.NewMemoryLimiter(5, time.Minute)
	t.Cleanup(func() { l.Close() })

	r := newEngine(WindowLimiterMiddleware(l))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	}

	w := do(r, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", message(t, w))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenLimiter) Close() error { return nil }

func TestWindowLimiterMiddleware_FailsOpen(t *testing.T) {
	r := newEngine(WindowLimiterMiddleware(brokenLimiter{}))

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
}

func TestTurnstile(t *testing.T) {
	var gotSecret, gotResponse string

	verify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotSecret, gotResponse = body["secret"], body["response"]

		ok := body["response"] == "good"
		_ = json.NewEncoder(w).Encode(turnstileResponse{Success: ok})
	}))
	defer verify.Close()

	r := newEngine(NewTurnstileMiddleware(TurnstileConfig{
		Enabled:   true,
		Secret:    "shh",
		VerifyURL: verify.URL,
	}))

	w := do(r, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TURNSTILE_TOKEN_MISSING", message(t, w))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("TurnstileToken", "bad")
	w = do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "TURNSTILE_FAILED", message(t, w))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("TurnstileToken", "good")
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shh", gotSecret)
	assert.Equal(t, "good", gotResponse)
}

func TestTurnstile_Disabled(t *testing.T) {
	r := newEngine(NewTurnstileMiddleware(TurnstileConfig{}))

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
}
