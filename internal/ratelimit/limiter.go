// Package ratelimit guards sensitive endpoints with Redis backed
// fixed-window counters keyed by client identity. The limiter degrades to
// allowing traffic when its own bookkeeping fails: availability wins over
// strict limiting.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket names one rate-limited flow with its threshold and window.
type Bucket struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Buckets consulted by the auth flows. Login buckets are deliberately
// tight since they cover pre-authentication traffic.
var (
	BucketLogin           = Bucket{Name: "login", Limit: 10, Window: time.Minute}
	BucketSuperAdminLogin = Bucket{Name: "superadmin-login", Limit: 5, Window: time.Minute}
	BucketPasswordReset   = Bucket{Name: "password-reset-request", Limit: 3, Window: time.Hour}
)

// Result is the outcome of a limit check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter implements the counters on Redis.
type Limiter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewLimiter constructs a Limiter.
func NewLimiter(client *redis.Client, logger *slog.Logger) *Limiter {
	return &Limiter{client: client, logger: logger}
}

// ClientIdentifier derives a stable key for the calling client from its
// network address plus a coarse user-agent fingerprint. It never depends
// on user identity, since limited flows include pre-authentication ones.
func ClientIdentifier(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	sum := sha256.Sum256([]byte(r.UserAgent()))
	return host + ":" + hex.EncodeToString(sum[:4])
}

// Check atomically increments the counter for key within the bucket's
// window. Exceeding the threshold denies with a retry hint. Redis errors
// fail open and are logged.
func (l *Limiter) Check(ctx context.Context, key string, b Bucket) Result {
	if l == nil || l.client == nil {
		return Result{Allowed: true}
	}
	redisKey := fmt.Sprintf("ratelimit:%s:%s", b.Name, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.failOpen("increment", err)
		return Result{Allowed: true}
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, b.Window).Err(); err != nil {
			l.failOpen("set expiry", err)
		}
	}
	if count <= int64(b.Limit) {
		return Result{Allowed: true}
	}

	retry := b.Window
	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	switch {
	case err != nil:
		// Retry hint stays at the full window.
	case ttl > 0:
		retry = ttl
	default:
		// The counter has no expiry, so it would deny forever. This
		// happens when the EXPIRE after the first INCR was lost. Re-arm
		// the window; if even that fails, let the request through.
		if err := l.client.Expire(ctx, redisKey, b.Window).Err(); err != nil {
			l.failOpen("repair expiry", err)
			return Result{Allowed: true}
		}
	}
	return Result{Allowed: false, RetryAfter: retry}
}

func (l *Limiter) failOpen(op string, err error) {
	if l.logger != nil {
		l.logger.Warn("rate limiter failing open", slog.String("op", op), slog.Any("error", err))
	}
}
