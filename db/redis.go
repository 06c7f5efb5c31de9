package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultKey = "items"

// RedisBackend stores records in a single sorted set, scored by expiry
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultKey
	}
	return &RedisBackend{client: client, key: key}
}

// DialRedis connects to host:port and checks the connection
func DialRedis(ctx context.Context, host string, port int, key string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		DialTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisBackend(client, key), nil
}

func (r *RedisBackend) Expiry(ctx context.Context, title string) (int64, bool, error) {
	score, err := r.client.ZScore(ctx, r.key, title).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("zscore: %w", err)
	}
	if score >= float64(Never) {
		return Never, true, nil
	}
	return int64(score), true, nil
}

func (r *RedisBackend) Put(ctx context.Context, title string, expiresAt int64) error {
	err := r.client.ZAdd(ctx, r.key, &redis.Z{
		Score:  float64(expiresAt),
		Member: title,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	return nil
}

func (r *RedisBackend) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	count, err := r.client.ZRemRangeByScore(ctx, r.key, "-inf", strconv.FormatInt(now, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("zremrangebyscore: %w", err)
	}
	return count, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
