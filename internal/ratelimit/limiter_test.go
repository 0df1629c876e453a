package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, nil), mr
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		result := limiter.Check(context.Background(), "client-a", bucket)
		assert.True(t, result.Allowed, "attempt %d should pass", i+1)
	}
}

func TestCheckDeniesOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 2, Window: time.Minute}

	limiter.Check(context.Background(), "client-a", bucket)
	limiter.Check(context.Background(), "client-a", bucket)
	result := limiter.Check(context.Background(), "client-a", bucket)

	require.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, time.Minute)
}

func TestCheckKeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 1, Window: time.Minute}

	require.True(t, limiter.Check(context.Background(), "client-a", bucket).Allowed)
	require.False(t, limiter.Check(context.Background(), "client-a", bucket).Allowed)
	assert.True(t, limiter.Check(context.Background(), "client-b", bucket).Allowed, "another client has its own counter")
}

func TestCheckWindowResets(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 1, Window: time.Minute}

	require.True(t, limiter.Check(context.Background(), "client-a", bucket).Allowed)
	require.False(t, limiter.Check(context.Background(), "client-a", bucket).Allowed)

	mr.FastForward(time.Minute + time.Second)

	assert.True(t, limiter.Check(context.Background(), "client-a", bucket).Allowed, "a fresh window starts clean")
}

func TestCheckRepairsCounterWithoutExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 3, Window: time.Minute}

	// A counter stranded without a TTL, as left behind by a lost EXPIRE
	// after the first INCR.
	require.NoError(t, mr.Set("ratelimit:test:client-a", "100"))
	require.Zero(t, mr.TTL("ratelimit:test:client-a"))

	result := limiter.Check(context.Background(), "client-a", bucket)
	require.False(t, result.Allowed)
	assert.Greater(t, mr.TTL("ratelimit:test:client-a"), time.Duration(0), "denial re-arms the window")

	mr.FastForward(time.Minute + time.Second)

	assert.True(t, limiter.Check(context.Background(), "client-a", bucket).Allowed, "the client is never locked out for good")
}

func TestCheckFailsOpenOnRedisError(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	bucket := Bucket{Name: "test", Limit: 1, Window: time.Minute}

	mr.Close()

	result := limiter.Check(context.Background(), "client-a", bucket)
	assert.True(t, result.Allowed, "limiter outages must not lock users out")
}

func TestCheckNilClientFailsOpen(t *testing.T) {
	limiter := NewLimiter(nil, nil)
	result := limiter.Check(context.Background(), "client-a", Bucket{Name: "test", Limit: 1, Window: time.Minute})
	assert.True(t, result.Allowed)
}

func TestClientIdentifier(t *testing.T) {
	reqA := httptest.NewRequest("POST", "/auth/login", nil)
	reqA.RemoteAddr = "203.0.113.7:4431"
	reqA.Header.Set("User-Agent", "agent-one")

	reqB := httptest.NewRequest("POST", "/auth/login", nil)
	reqB.RemoteAddr = "203.0.113.7:9902"
	reqB.Header.Set("User-Agent", "agent-one")

	assert.Equal(t, ClientIdentifier(reqA), ClientIdentifier(reqB), "ephemeral ports do not change identity")

	reqC := httptest.NewRequest("POST", "/auth/login", nil)
	reqC.RemoteAddr = "203.0.113.7:4431"
	reqC.Header.Set("User-Agent", "agent-two")

	assert.NotEqual(t, ClientIdentifier(reqA), ClientIdentifier(reqC), "user agent feeds the fingerprint")
}
