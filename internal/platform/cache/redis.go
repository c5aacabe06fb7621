// Package cache is the read-through KV component (spec §2): individual
// nodes cached under "node:<org>:<id>", DS authoritative.
package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ganesh47/cf-metadata-sys/internal/config"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
)

type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type redisKV struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewRedisKV(cfg config.Config, log *logger.Logger) (KV, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &redisKV{rdb: rdb, log: log.With("service", "RedisKV")}, nil
}

func NodeCacheKey(orgID, id string) string {
	return "node:" + orgID + ":" + id
}

func (k *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, true, nil
}

func (k *redisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := k.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (k *redisKV) Delete(ctx context.Context, key string) error {
	if err := k.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}
