package redis

import (
	"context"
	"errors"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/util"

	r "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Client is the subset of go-redis the backend uses.
type Client interface {
	Close() error
	Del(ctx context.Context, keys ...string) *r.IntCmd
	Get(ctx context.Context, key string) *r.StringCmd
	IncrBy(ctx context.Context, key string, value int64) *r.IntCmd
	Keys(ctx context.Context, pattern string) *r.StringSliceCmd
	Ping(ctx context.Context) *r.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd
}

func NewClient(cfg config.Redis) Client {
	client := r.NewClient(&r.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       0,
	})
	_, err := client.Ping(context.TODO()).Result()
	util.Assert(err == nil, "Redis connection failed", err)
	return client
}

// WrapInCache serves key from redis and falls back to fn, storing its result for ttl.
// Redis being unavailable only costs the cache; fn errors are returned and never cached.
func WrapInCache(ctx context.Context, c Client, key string, ttl time.Duration, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		cached, err := c.Get(ctx, key).Result()
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, r.Nil):
			log.Warnf("WrapInCache: reading %s: %v", key, err)
		}

		fresh, err := fn()
		if err != nil {
			return "", err
		}
		if err := c.Set(ctx, key, fresh, ttl).Err(); err != nil {
			log.Warnf("WrapInCache: writing %s: %v", key, err)
		}
		return fresh, nil
	}
}
