package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"dashfeed/internal/storage"
	"dashfeed/internal/utils/hash"
)

const (
	keyPrefix = "dashfeed:http:"
	opTimeout = 2 * time.Second
)

func init() {
	storage.RegisterFactory(storage.TypeRedis, New)
}

// RedisStorage shares cached responses between machines. Expiry is left to
// redis. Keys are the SHA-256 of the request key under keyPrefix.
type RedisStorage struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(cfg storage.Config, logger *slog.Logger) (storage.ResponseStore, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis cache: address is required")
	}

	logger.Debug("Initializing redis cache", "addr", cfg.RedisAddr, "ttl", cfg.TTL)

	return NewWithClient(goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr}), cfg.TTL, logger), nil
}

func NewWithClient(client *goredis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (r *RedisStorage) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	response, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.logger.Debug("HTTP cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return response, true
}

func (r *RedisStorage) Set(key string, response []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, redisKey(key), response, r.ttl).Err(); err != nil {
		r.logger.Debug("HTTP cache write failed", "key", key, "error", err)
	}
}

func (r *RedisStorage) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		r.logger.Debug("HTTP cache delete failed", "key", key, "error", err)
	}
}

func (r *RedisStorage) Close(ctx context.Context) error {
	return r.client.Close()
}

func redisKey(key string) string {
	return keyPrefix + hash.Sum(key)
}
