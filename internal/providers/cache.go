package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/pkg/logger"
	"github.com/llmwatch/llmwatch/internal/pkg/metrics"
)

// Cache is a Redis-backed response cache wrapped around a provider.
// Identical prompts within the TTL reuse the stored completion instead of
// calling the provider again.
type Cache struct {
	inner  Provider
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCache wraps a provider with a Redis response cache. It pings the
// server once so a misconfigured cache fails at startup, not per request.
func NewCache(inner Provider, cfg config.RedisConfig, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{
		inner:  inner,
		client: client,
		ttl:    cfg.CacheTTL,
		logger: log,
	}, nil
}

// Name identifies the wrapped provider.
func (c *Cache) Name() string { return c.inner.Name() }

// Complete serves the completion from cache when possible, calling the
// wrapped provider and storing the result on a miss. Cache failures fall
// through to the provider.
func (c *Cache) Complete(ctx context.Context, prompt string) (*Completion, error) {
	key := c.key(prompt)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached Completion
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.RecordCacheLookup("hit")
			return &cached, nil
		}
	} else if err != redis.Nil {
		c.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Response cache lookup failed")
	}
	metrics.RecordCacheLookup("miss")

	completion, err := c.inner.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(completion); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WithFields(map[string]interface{}{"error": err.Error()}).Warn("Response cache store failed")
		}
	}
	return completion, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(prompt string) string {
	sum := sha256.Sum256([]byte(c.inner.Name() + "|" + prompt))
	return "llmwatch:completion:" + hex.EncodeToString(sum[:])
}
