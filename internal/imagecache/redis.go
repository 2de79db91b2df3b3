package imagecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "radarbr:imgcache:"

// RedisCache stores each entry as a JSON string with a server-side TTL.
type RedisCache struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
	addr   string
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, maxAge time.Duration, logger *slog.Logger) (*RedisCache, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{
		client: client,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger.With("component", "image_cache", "backend", "redis"),
		addr:   opt.Addr,
	}, nil
}

func (rc *RedisCache) Get(ctx context.Context, title, category string) (Entry, bool) {
	key := redisPrefix + Key(title, category)
	raw, err := rc.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.logger.Warn("cache get failed", "error", err)
		}
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.expired(rc.now(), rc.maxAge) {
		rc.client.Del(ctx, key)
		return Entry{}, false
	}
	return e, true
}

func (rc *RedisCache) Set(ctx context.Context, title, url, category string, metadata map[string]string) error {
	e := newEntry(rc.now(), title, url, category, metadata)
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return rc.client.Set(ctx, redisPrefix+Key(title, category), data, rc.maxAge).Err()
}

func (rc *RedisCache) Delete(ctx context.Context, title, category string) error {
	return rc.client.Del(ctx, redisPrefix+Key(title, category)).Err()
}

// ClearExpired removes entries whose timestamp is older than max age. Redis
// TTLs normally get there first; this catches entries written with a longer TTL.
func (rc *RedisCache) ClearExpired(ctx context.Context) (int, error) {
	removed := 0
	err := rc.scan(ctx, func(key string, e Entry, ok bool) error {
		if ok && !e.expired(rc.now(), rc.maxAge) {
			return nil
		}
		if err := rc.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		removed++
		return nil
	})
	if removed > 0 {
		rc.logger.Info("removed expired cache entries", "count", removed)
	}
	return removed, err
}

func (rc *RedisCache) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		MaxAgeDays: rc.maxAge.Hours() / 24,
		Backend:    "redis",
		Location:   rc.addr,
	}
	err := rc.scan(ctx, func(_ string, e Entry, ok bool) error {
		st.TotalEntries++
		if !ok || e.expired(rc.now(), rc.maxAge) {
			st.ExpiredEntries++
		}
		return nil
	})
	st.ActiveEntries = st.TotalEntries - st.ExpiredEntries
	return st, err
}

func (rc *RedisCache) Close() error { return rc.client.Close() }

func (rc *RedisCache) scan(ctx context.Context, fn func(key string, e Entry, ok bool) error) error {
	iter := rc.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := rc.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}
		var e Entry
		ok := json.Unmarshal([]byte(raw), &e) == nil
		if err := fn(key, e, ok); err != nil {
			return err
		}
	}
	return iter.Err()
}
