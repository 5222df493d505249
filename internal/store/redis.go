package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signalscan/internal/domain/repository"
)

// RedisStore persists documents as JSON values in Redis. Writes are
// last-write-wins and keys never expire; the scanner rewrites its state on
// every persist tick.
type RedisStore struct {
	cli    *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{cli: cli, prefix: cfg.Prefix}
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

func (s *RedisStore) Load(ctx context.Context, key string, dest any) error {
	b, err := s.cli.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return repository.ErrNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.cli.Set(ctx, s.prefix+key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
