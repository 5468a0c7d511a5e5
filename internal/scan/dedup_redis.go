package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// DedupKeyPrefix is the Redis key prefix for per-instance dedup sets.
	DedupKeyPrefix = "tagscout:dedup:"

	// DedupTTL expires sets left behind by dead instances. It is refreshed on every add.
	DedupTTL = 30 * 24 * time.Hour
)

// RedisCache is a DedupCache stored in a Redis set. The set is keyed by the
// process instance id so its scope stays the process lifetime.
type RedisCache struct {
	client rueidis.Client
	key    string
	logger *zap.Logger
}

// NewRedisCache creates a Redis-backed cache for the given instance.
func NewRedisCache(client rueidis.Client, instanceID string, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		key:    DedupKeyPrefix + instanceID,
		logger: logger.Named("dedup_cache"),
	}
}

// Key returns the Redis key of the set.
func (c *RedisCache) Key() string {
	return c.key
}

// Contains reports whether the id is a member of the set.
func (c *RedisCache) Contains(ctx context.Context, id snowflake.ID) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Sismember().Key(c.key).Member(id.String()).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup set: %w", err)
	}

	return n == 1, nil
}

// Add inserts the id and refreshes the housekeeping TTL.
func (c *RedisCache) Add(ctx context.Context, id snowflake.ID) error {
	results := c.client.DoMulti(ctx,
		c.client.B().Sadd().Key(c.key).Member(id.String()).Build(),
		c.client.B().Expire().Key(c.key).Seconds(int64(DedupTTL/time.Second)).Build(),
	)

	for _, result := range results {
		if err := result.Error(); err != nil {
			return fmt.Errorf("failed to add to dedup set: %w", err)
		}
	}

	c.logger.Debug("Added member to dedup set", zap.Uint64("memberID", uint64(id)))

	return nil
}

// Len returns the cardinality of the set.
func (c *RedisCache) Len(ctx context.Context) (int64, error) {
	n, err := c.client.Do(ctx, c.client.B().Scard().Key(c.key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to count dedup set: %w", err)
	}

	return n, nil
}
