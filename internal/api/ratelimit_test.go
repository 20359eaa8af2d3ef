package api

import (
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/polity/internal/world"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are counted separately")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 31, rl.RetryAfter("a"))
	assert.Equal(t, 0, rl.RetryAfter("unknown"))

	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("a"), "a new window refills the bucket")
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for _, c := range []string{"a", "b", "c"} {
		assert.True(t, rl.Allow(c))
	}
	assert.Len(t, rl.buckets, 3)

	now = now.Add(3 * time.Minute)
	assert.True(t, rl.Allow("d"))
	assert.Len(t, rl.buckets, 1, "idle clients are dropped on the next request")
	assert.Contains(t, rl.buckets, "d")
}

func TestHandlerStartsNoGoroutines(t *testing.T) {
	w := world.New(nil)
	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		(&Server{World: w}).Handler()
	}
	assert.Less(t, runtime.NumGoroutine()-before, 10)
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "192.0.2.7", clientAddr(r))

	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientAddr(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientAddr(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientAddr(r))
}
