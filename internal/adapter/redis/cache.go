package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dayKeyPrefix = "align:day:"
	defaultTTL   = 7 * 24 * time.Hour
)

// Cache stores finished day payloads so reruns and the reel tooling can skip
// recomputation.
type Cache struct {
	client *redis.Client
}

func NewCache(uri string) (*Cache, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis URI: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func dayKey(day, part int) string {
	if part > 0 {
		return fmt.Sprintf("%s%d:part:%d", dayKeyPrefix, day, part)
	}
	return fmt.Sprintf("%s%d", dayKeyPrefix, day)
}

// GetDayPayload returns the cached payload for a day, nil when absent.
func (c *Cache) GetDayPayload(ctx context.Context, day, part int) ([]byte, error) {
	val, err := c.client.Get(ctx, dayKey(day, part)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day payload: %w", err)
	}
	return val, nil
}

// SetDayPayload stores the payload for a day with the default TTL.
func (c *Cache) SetDayPayload(ctx context.Context, day, part int, payload []byte) error {
	return c.client.Set(ctx, dayKey(day, part), payload, defaultTTL).Err()
}
