package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardiopredict-server/internal/domain"
)

const defaultKeyPrefix = "cardiopredict:workspace:"

// RedisStore keeps workspaces in Redis as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server in cfg.RedisURL and checks it answers.
func NewRedisStore(ctx context.Context, cfg domain.SessionConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStore(client, cfg.KeyPrefix, cfg.TTL), nil
}

func newRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Get loads the workspace stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Workspace, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	w, err := decode(val)
	if err != nil {
		// Remove corrupted entry
		s.client.Del(ctx, s.key(id))
		return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	return w, nil
}

// Save writes w and restarts its TTL.
func (s *RedisStore) Save(ctx context.Context, w *Workspace) error {
	data, err := encode(w)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(w.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	return nil
}

// Delete removes the workspace stored under id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
