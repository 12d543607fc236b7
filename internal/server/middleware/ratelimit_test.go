package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync/pkg/logging"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func limiter(limit int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(limit, time.Minute, logging.NewNopLogger())
	rl.now = clock.now
	return rl, clock
}

func request(addr, forwarded string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/casesForUser/1", nil)
	req.RemoteAddr = addr
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	return req
}

func TestRateLimitWindow(t *testing.T) {
	rl, clock := limiter(2)
	h := RateLimit(rl)(okHandler())

	serve := func(addr string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request(addr, ""))
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1000").Code)
	// a new connection from the same host shares the budget
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1001").Code)

	rec := serve("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, serve("10.0.0.2:1000").Code)

	clock.advance(time.Minute)
	assert.Equal(t, http.StatusOK, serve("10.0.0.1:1003").Code)
}

func TestRateLimitProxy(t *testing.T) {
	rl, _ := limiter(1)

	assert.Equal(t, "10.0.0.1", rl.clientIP(request("10.0.0.1:5", "203.0.113.9")))

	rl.TrustProxy(true)
	assert.Equal(t, "203.0.113.9", rl.clientIP(request("10.0.0.1:5", "203.0.113.9, 10.0.0.1")))
	assert.Equal(t, "10.0.0.1", rl.clientIP(request("10.0.0.1:5", "")))
	assert.Equal(t, "pipe", rl.clientIP(request("pipe", "")))
}

func TestRateLimitEvict(t *testing.T) {
	rl, clock := limiter(1)
	ok, _ := rl.allow("a")
	require.True(t, ok)

	clock.advance(time.Minute)
	ok, _ = rl.allow("b")
	require.True(t, ok)

	rl.evict(30 * time.Second)
	rl.mu.Lock()
	_, hasA := rl.visitors["a"]
	_, hasB := rl.visitors["b"]
	rl.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(10, logging.NewNopLogger())
	rl.Stop()
	rl.Stop()
}
