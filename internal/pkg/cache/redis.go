package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/insurance"
	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for cached social insurance results
	redisKeyPrefix = "payroll:si:"
	scanBatchSize  = 500
)

// RedisStore shares cached results across instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*insurance.SocialInsuranceResult, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached result: %w", err)
	}

	var result insurance.SocialInsuranceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key Key, result *insurance.SocialInsuranceResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	return s.client.Set(ctx, redisKeyPrefix+key.String(), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	return s.client.Del(ctx, redisKeyPrefix+key.String()).Err()
}

func (s *RedisStore) DeleteMatching(ctx context.Context, match Matcher) (int, error) {
	var toDelete []string
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		parsed, err := ParseKey(strings.TrimPrefix(full, redisKeyPrefix))
		if err != nil {
			continue
		}
		if match(parsed) {
			toDelete = append(toDelete, full)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scan cached results: %w", err)
	}
	if len(toDelete) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for start := 0; start < len(toDelete); start += scanBatchSize {
		end := min(start+scanBatchSize, len(toDelete))
		pipe.Del(ctx, toDelete[start:end]...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete cached results: %w", err)
	}
	return len(toDelete), nil
}
