package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("zero rate disables", func(t *testing.T) {
		l, err := New(Config{RequestsPerSecond: 0, BurstSize: 1})
		require.NoError(t, err)
		assert.Nil(t, l)
	})

	t.Run("negative rate", func(t *testing.T) {
		_, err := New(Config{RequestsPerSecond: -1, BurstSize: 1})
		assert.Error(t, err)
	})

	t.Run("zero burst", func(t *testing.T) {
		_, err := New(Config{RequestsPerSecond: 1, BurstSize: 0})
		assert.Error(t, err)
	})

	t.Run("defaults applied", func(t *testing.T) {
		l, err := New(Config{RequestsPerSecond: 1, BurstSize: 1})
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().CleanupPeriod, l.config.CleanupPeriod)
		assert.Equal(t, DefaultConfig().MaxKeys, l.config.MaxKeys)
	})
}

func TestLimiter_AllowPerKey(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 0.001, BurstSize: 2})
	require.NoError(t, err)

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	// separate bucket
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.ActiveKeys())
}

func TestLimiter_CleanupDropsIdleKeys(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 1, BurstSize: 1, CleanupPeriod: time.Minute})
	require.NoError(t, err)

	l.Allow("old")
	l.mu.Lock()
	l.limiters["old"].lastUsed = time.Now().Add(-2 * time.Minute)
	l.lastCleanup = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	l.Allow("new")
	assert.Equal(t, 1, l.ActiveKeys())
}

func TestHTTPMiddleware(t *testing.T) {
	l, err := New(Config{RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)

	handler := HTTPMiddleware(l, IPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)

	rr := send("10.0.0.1:5678")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code)
}

func TestHTTPMiddleware_NilLimiter(t *testing.T) {
	handler := HTTPMiddleware(nil, IPKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	}
}

func TestIPKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.9:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.9:80", "198.51.100.7"},
		{"ipv4 remote", nil, "192.0.2.1:4321", "192.0.2.1"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"bare remote", nil, "192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IPKey(req))
		})
	}
}
