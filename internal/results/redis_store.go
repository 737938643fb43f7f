package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "speechguard:result:"
	redisScanCount = 200
	fieldPayload   = "payload"
	fieldCreatedAt = "created_at"
)

// RedisStore keeps each result in a hash with a TTL equal to the retention
// window, so expiry normally happens inside redis and Sweep only catches
// records written under a longer window.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisStore(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl, logger), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "results"),
		now:    time.Now,
	}
}

func (s *RedisStore) Put(ctx context.Context, id string, result *models.AnalysisResult) error {
	if !validID(id) {
		return fmt.Errorf("invalid result id %q", id)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := redisKeyPrefix + id
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldPayload, payload, fieldCreatedAt, s.now().UnixMilli())
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	payload, err := s.client.HGet(ctx, redisKeyPrefix+id, fieldPayload).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return payload, nil
}

func (s *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	removed := 0

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		raw, err := s.client.HGet(ctx, key, fieldCreatedAt).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				s.logger.Warn("expired result lookup failed; skipping",
					logging.String(logging.FieldEventType, "result_sweep_failed"),
					logging.String("key", key),
					logging.Error(err))
			}
			continue
		}

		createdAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || createdAt >= cutoff {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("expired result remove failed; skipping",
				logging.String(logging.FieldEventType, "result_sweep_failed"),
				logging.String("key", key),
				logging.Error(err))
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan results: %w", err)
	}

	if removed > 0 {
		s.logger.Info("expired results removed", logging.Int("count", removed))
	}
	return removed, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
