package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/ChartPredictor/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "chartpredict:result:"

// ResultCache stores reconciled predictions keyed by image and hints
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Connect opens a Redis connection. addr is either host:port or a redis:// URL.
func Connect(ctx context.Context, addr string, ttl time.Duration) (*ResultCache, error) {
	var opts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return New(client, ttl), nil
}

// New wraps an existing client
func New(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "result_cache").Logger(),
	}
}

// Key builds the cache key for an image and its hints
func Key(imageRef string, hints models.ChartHints) string {
	return keyPrefix + imageRef + ":" + strings.ToUpper(hints.Symbol) + ":" + strings.ToLower(hints.Timeframe)
}

// Get returns the cached result for key. found is false on a miss.
func (c *ResultCache) Get(ctx context.Context, key string) (result models.PredictionResult, found bool, err error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false, nil
	}
	if err != nil {
		return result, false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cache entry")
		c.client.Del(ctx, key)
		return models.PredictionResult{}, false, nil
	}
	return result, true, nil
}

// Set stores result under key with the configured TTL
func (c *ResultCache) Set(ctx context.Context, key string, result models.PredictionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (c *ResultCache) Close() error {
	return c.client.Close()
}
