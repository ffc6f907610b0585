package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the account pool as a single JSON value so Save stays
// atomic, mirroring the file store's whole-file semantics. Intended for
// multi-replica deployments sharing one pool.
type RedisStore struct {
	cli *redis.Client
	key string
}

// NewRedisStore connects to redis and namespaces the pool under key.
func NewRedisStore(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{cli: redis.NewClient(opts), key: key}, nil
}

// NewRedisStoreWithClient wraps an existing client (tests).
func NewRedisStoreWithClient(cli *redis.Client, key string) *RedisStore {
	return &RedisStore{cli: cli, key: key}
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *RedisStore) Load() ([]*Account, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	data, err := s.cli.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var accounts []*Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}
	return accounts, nil
}

func (s *RedisStore) Save(accounts []*Account) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("marshal accounts: %w", err)
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.cli.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Salt() (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	saltKey := s.key + ":salt"
	salt, err := s.cli.Get(ctx, saltKey).Result()
	if err == nil && salt != "" {
		return salt, nil
	}
	if err != nil && err != redis.Nil {
		return "", fmt.Errorf("redis get %s: %w", saltKey, err)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt = hex.EncodeToString(buf)
	// SetNX so concurrent replicas agree on one salt.
	ok, err := s.cli.SetNX(ctx, saltKey, salt, 0).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx %s: %w", saltKey, err)
	}
	if !ok {
		return s.cli.Get(ctx, saltKey).Result()
	}
	return salt, nil
}
