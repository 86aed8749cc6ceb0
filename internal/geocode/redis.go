package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// RedisCache is a RemoteCache stored in Redis as JSON values under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "geocode:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Coordinate, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinate{}, false, nil
	}
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("geocode.RedisCache.Get: %w", err)
	}

	var coord domain.Coordinate
	if err := json.Unmarshal([]byte(val), &coord); err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("geocode.RedisCache.Get: decode: %w", err)
	}
	return coord, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, coord domain.Coordinate) error {
	data, err := json.Marshal(coord)
	if err != nil {
		return fmt.Errorf("geocode.RedisCache.Set: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("geocode.RedisCache.Set: %w", err)
	}
	return nil
}
