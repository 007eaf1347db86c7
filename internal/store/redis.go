package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces result keys.
const redisKeyPrefix = "surveyd:result:"

// Compile-time interface satisfaction check.
var _ ResultStore = (*RedisStore)(nil)

// RedisStore implements ResultStore on a Redis server. Durability follows the
// server's persistence configuration (AOF or RDB).
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to the Redis server at addr and verifies it is reachable.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Key returns the Redis key holding the result for jobID.
func (s *RedisStore) Key(jobID string) string {
	return redisKeyPrefix + jobID
}

// Write stores the result for jobID with SETNX so an existing value is never replaced.
func (s *RedisStore) Write(ctx context.Context, jobID string, data []byte) error {
	if err := checkKey(jobID); err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, s.Key(jobID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	if !ok {
		return ErrAlreadyWritten
	}
	return nil
}

// Read retrieves the result for jobID.
func (s *RedisStore) Read(ctx context.Context, jobID string) ([]byte, error) {
	if err := checkKey(jobID); err != nil {
		return nil, err
	}

	data, err := s.rdb.Get(ctx, s.Key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return data, nil
}

// LastSeq scans result keys for the highest job sequence number.
func (s *RedisStore) LastSeq(ctx context.Context) (int64, error) {
	var last int64
	iter := s.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		last = maxSeq(last, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan results: %w", err)
	}
	return last, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
