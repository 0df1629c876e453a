package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// MetricPoint is one aggregated APM sample.
type MetricPoint struct {
	Bucket       time.Time `json:"bucket"`
	Requests     int64     `json:"requests"`
	ErrorRate    float64   `json:"error_rate"`
	P95LatencyMS float64   `json:"p95_latency_ms"`
}

// Reader exposes the APM metrics store read-only. Collection and storage
// belong to a separate pipeline; this is its consumption surface.
type Reader interface {
	HistoricalMetrics(ctx context.Context, timeRange time.Duration) ([]MetricPoint, error)
	RealTimeMetrics(ctx context.Context, timeRange time.Duration) ([]MetricPoint, error)
}

// StoreReader reads historical aggregates from PostgreSQL and the
// real-time window from Redis, with a short cache in front of the
// historical query. Concurrent identical reads collapse via
// singleflight.
type StoreReader struct {
	pool     *pgxpool.Pool
	cache    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewStoreReader constructs the reader.
func NewStoreReader(pool *pgxpool.Pool, cache *redis.Client, cacheTTL time.Duration) *StoreReader {
	return &StoreReader{pool: pool, cache: cache, cacheTTL: cacheTTL}
}

// HistoricalMetrics returns per-minute aggregates over the range.
func (r *StoreReader) HistoricalMetrics(ctx context.Context, timeRange time.Duration) ([]MetricPoint, error) {
	key := fmt.Sprintf("apm:historical:%d", int64(timeRange.Seconds()))
	if points, ok := r.cached(ctx, key); ok {
		return points, nil
	}
	result, err, _ := r.group.Do(key, func() (any, error) {
		points, err := r.queryHistorical(ctx, timeRange)
		if err != nil {
			return nil, err
		}
		r.store(ctx, key, points)
		return points, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]MetricPoint), nil
}

// RealTimeMetrics reads the rolling window the collection pipeline keeps
// in Redis.
func (r *StoreReader) RealTimeMetrics(ctx context.Context, timeRange time.Duration) ([]MetricPoint, error) {
	raw, err := r.cache.LRange(ctx, "apm:realtime", 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	cutoff := time.Now().Add(-timeRange)
	points := make([]MetricPoint, 0, len(raw))
	for _, item := range raw {
		var point MetricPoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			continue
		}
		if point.Bucket.Before(cutoff) {
			continue
		}
		points = append(points, point)
	}
	return points, nil
}

func (r *StoreReader) queryHistorical(ctx context.Context, timeRange time.Duration) ([]MetricPoint, error) {
	since := time.Now().Add(-timeRange).UTC()
	rows, err := r.pool.Query(ctx,
		`SELECT bucket, requests, error_rate, p95_latency_ms
		 FROM apm_metrics
		 WHERE bucket >= $1
		 ORDER BY bucket`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []MetricPoint
	for rows.Next() {
		var point MetricPoint
		if err := rows.Scan(&point.Bucket, &point.Requests, &point.ErrorRate, &point.P95LatencyMS); err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

func (r *StoreReader) cached(ctx context.Context, key string) ([]MetricPoint, bool) {
	if r.cache == nil {
		return nil, false
	}
	data, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var points []MetricPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, false
	}
	return points, true
}

func (r *StoreReader) store(ctx context.Context, key string, points []MetricPoint) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(points)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, key, data, r.cacheTTL).Err()
}

var _ Reader = (*StoreReader)(nil)
