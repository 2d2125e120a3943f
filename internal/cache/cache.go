// Package cache adds a shared Redis read-through cache in front of the
// reviews API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/customerdash/internal/domain"
)

const keyPrefix = "customerdash:reviews:user:"

// Source is the fetcher being cached.
type Source interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)
}

// Client is the subset of go-redis the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// ReviewCache serves a user's reviews from Redis when present and stores
// successful fetches from the source for ttl. Redis errors are logged and
// fall through to the source.
type ReviewCache struct {
	source Source
	client Client
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps source with a cache entry lifetime of ttl.
func New(source Source, client Client, ttl time.Duration, logger *slog.Logger) *ReviewCache {
	return &ReviewCache{source: source, client: client, ttl: ttl, logger: logger}
}

// Key returns the Redis key for userID.
func Key(userID string) string {
	return keyPrefix + userID
}

// ListByUser implements the source contract through the cache.
func (c *ReviewCache) ListByUser(ctx context.Context, userID string) ([]domain.Review, error) {
	key := Key(userID)

	if reviews, ok := c.lookup(ctx, key); ok {
		return reviews, nil
	}

	reviews, err := c.source.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, reviews)
	return reviews, nil
}

func (c *ReviewCache) lookup(ctx context.Context, key string) ([]domain.Review, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "reviews cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	reviews := []domain.Review{}
	if err := json.Unmarshal(raw, &reviews); err != nil {
		c.logger.WarnContext(ctx, "reviews cache entry undecodable",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return reviews, true
}

func (c *ReviewCache) store(ctx context.Context, key string, reviews []domain.Review) {
	raw, err := json.Marshal(reviews)
	if err != nil {
		c.logger.WarnContext(ctx, "reviews cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "reviews cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
