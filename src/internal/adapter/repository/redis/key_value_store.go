package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/api-sage/moneytransfer/src/internal/commons"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// KeyValueStore stores client state as plain redis strings under Prefix.
// Entries never expire; logout deletes them.
type KeyValueStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewKeyValueStore(client goredis.UniversalClient, prefix string) *KeyValueStore {
	return &KeyValueStore{client: client, prefix: prefix}
}

// Open connects to redis and verifies the connection with PING.
func Open(ctx context.Context, opts Options) (*KeyValueStore, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewKeyValueStore(client, opts.Prefix), nil
}

func (s *KeyValueStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", commons.ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get client state %q: %w", key, err)
	}

	return value, nil
}

func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("set client state %q: %w", key, err)
	}
	return nil
}

func (s *KeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("delete client state %q: %w", key, err)
	}
	return nil
}

func (s *KeyValueStore) Close() error {
	return s.client.Close()
}

func (s *KeyValueStore) key(key string) string {
	return s.prefix + key
}
