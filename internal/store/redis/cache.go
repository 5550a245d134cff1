// Package redis provides a latest-value cache for dashboard readers.
// After a symbol's run commits to SQLite, the newest indicator values and
// detections are SET under TTL keys in one pipelined roundtrip. The cache
// is optional: a nil *Cache is a no-op.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"analysis-enginev1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// Config configures the Redis cache.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // 0 = defaultLatestTTL
}

// Cache writes latest analysis output to Redis.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates a new Cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultLatestTTL
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client, ttl: ttl}, nil
}

// IndicatorKey returns the latest-value key: "latest:ind:{symbol}:{tf}:{name}".
func IndicatorKey(r *model.IndicatorResult) string {
	return "latest:ind:" + r.Symbol + ":" + r.Timeframe + ":" + r.Indicator
}

// DetectionKey returns the latest-detection key: "latest:pat:{symbol}:{tf}:{name}".
func DetectionKey(d *model.PatternDetection) string {
	return "latest:pat:" + d.Symbol + ":" + d.Timeframe + ":" + d.Pattern
}

// WriteRun caches a committed run's results and detections in a single
// pipeline. Errors are logged, not returned: the SQLite commit is the
// durable record and a cache miss only costs a reader a database query.
func (c *Cache) WriteRun(ctx context.Context, results []*model.IndicatorResult, detections []*model.PatternDetection) {
	if c == nil || (len(results) == 0 && len(detections) == 0) {
		return
	}

	pipe := c.client.Pipeline()
	for _, r := range results {
		pipe.Set(ctx, IndicatorKey(r), r.JSON(), c.ttl)
	}
	for _, d := range detections {
		pipe.Set(ctx, DetectionKey(d), d.JSON(), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] latest-value cache write error: %v", err)
	}
}

// Close closes the client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
