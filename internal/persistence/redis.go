package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/techstore-checkout/pkg/redis"
)

// RedisSlot stores the value under a namespaced redis key with no expiry.
type RedisSlot struct {
	client *redis.Client
	key    string
}

// NewRedisSlot binds a slot to the redis client.
func NewRedisSlot(client *redis.Client, name string) (*RedisSlot, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("slot key required")
	}
	return &RedisSlot{client: client, key: client.SlotKey(name)}, nil
}

func (s *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	value, err := s.client.Get(ctx, s.key)
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", s.key, err)
	}
	return []byte(value), nil
}

func (s *RedisSlot) Write(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, string(data), 0); err != nil {
		return fmt.Errorf("write slot %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisSlot) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key); err != nil {
		return fmt.Errorf("remove slot %s: %w", s.key, err)
	}
	return nil
}
