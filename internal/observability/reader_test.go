package observability

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T) (*StoreReader, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStoreReader(nil, client, time.Minute), mr, client
}

func TestRealTimeMetricsFiltersByCutoff(t *testing.T) {
	reader, _, client := newTestReader(t)

	fresh := MetricPoint{Bucket: time.Now().Add(-time.Minute), Requests: 42, ErrorRate: 0.5}
	stale := MetricPoint{Bucket: time.Now().Add(-2 * time.Hour), Requests: 7}
	for _, p := range []MetricPoint{fresh, stale} {
		data, err := json.Marshal(p)
		require.NoError(t, err)
		require.NoError(t, client.RPush(context.Background(), "apm:realtime", data).Err())
	}

	points, err := reader.RealTimeMetrics(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(42), points[0].Requests)
}

func TestRealTimeMetricsSkipsMalformedItems(t *testing.T) {
	reader, _, client := newTestReader(t)
	require.NoError(t, client.RPush(context.Background(), "apm:realtime", "not-json").Err())

	points, err := reader.RealTimeMetrics(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRealTimeMetricsEmptyWindow(t *testing.T) {
	reader, _, _ := newTestReader(t)

	points, err := reader.RealTimeMetrics(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestHistoricalMetricsServedFromCache(t *testing.T) {
	reader, _, client := newTestReader(t)

	cached := []MetricPoint{{Bucket: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), Requests: 9}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	key := "apm:historical:3600"
	require.NoError(t, client.Set(context.Background(), key, data, time.Minute).Err())

	// The pool is nil, so a cache miss would fail loudly. A hit never
	// touches PostgreSQL.
	points, err := reader.HistoricalMetrics(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, int64(9), points[0].Requests)
}
