package popularity

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counts in a sorted set so they survive restarts and are shared across replicas.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisConfig configures the connection and the sorted-set key.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreFromClient(client, cfg.Key), nil
}

func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "folio:suggestions"
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Increment(ctx context.Context, key string) error {
	if err := s.client.ZIncrBy(ctx, s.key, 1, key).Err(); err != nil {
		return fmt.Errorf("failed to increment %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) TopN(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	keys, err := s.client.ZRevRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read top suggestions: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection, used by health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
