// Package queue provides the Redis Streams-based task queue. Messages are
// delivered at least once; delayed delivery is implemented with a sorted set
// of due messages promoted into the stream.
package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tubemirror/internal/config"
)

const (
	// Default connection timeout for Redis operations.
	defaultConnectionTimeout = 2 * time.Second

	defaultPrefix = "tubemirror"
)

// StreamsClient wraps a Redis client with streams-specific operations.
type StreamsClient struct {
	client *redis.Client
	prefix string
}

// NewStreamsClient creates a new Redis Streams client.
func NewStreamsClient(cfg config.RedisConfig) (*StreamsClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &StreamsClient{client: client, prefix: prefix}, nil
}

// NewStreamsClientFromRedis creates a StreamsClient from an existing Redis
// client. Used by tests with miniredis.
func NewStreamsClientFromRedis(client *redis.Client, prefix string) *StreamsClient {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &StreamsClient{client: client, prefix: prefix}
}

// StreamName returns the full task stream name.
func (c *StreamsClient) StreamName() string {
	return c.prefix + ":tasks"
}

// DelayedSetName returns the key of the delayed-delivery sorted set.
func (c *StreamsClient) DelayedSetName() string {
	return c.prefix + ":tasks:delayed"
}

// Close closes the underlying Redis client.
func (c *StreamsClient) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *StreamsClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// CreateConsumerGroup creates a consumer group for the task stream if it
// doesn't exist.
func (c *StreamsClient) CreateConsumerGroup(ctx context.Context, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, c.StreamName(), group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// XAdd adds a message to the task stream.
func (c *StreamsClient) XAdd(ctx context.Context, values map[string]any) (string, error) {
	return c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.StreamName(),
		Values: values,
	}).Result()
}

// XReadGroup reads messages from the task stream using a consumer group.
func (c *StreamsClient) XReadGroup(
	ctx context.Context, group, consumer string, count int64, block time.Duration,
) ([]redis.XStream, error) {
	return c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{c.StreamName(), ">"},
		Count:    count,
		Block:    block,
	}).Result()
}

// XAck acknowledges messages in the task stream.
func (c *StreamsClient) XAck(ctx context.Context, group string, ids ...string) error {
	return c.client.XAck(ctx, c.StreamName(), group, ids...).Err()
}

// XPendingExt returns detailed pending entries for the task stream.
func (c *StreamsClient) XPendingExt(
	ctx context.Context, group string, count int64,
) ([]redis.XPendingExt, error) {
	return c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.StreamName(),
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
}

// XClaim claims pending messages for a consumer.
func (c *StreamsClient) XClaim(
	ctx context.Context, group, consumer string, minIdle time.Duration, ids ...string,
) ([]redis.XMessage, error) {
	return c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.StreamName(),
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
}

// XLen returns the length of the task stream.
func (c *StreamsClient) XLen(ctx context.Context) (int64, error) {
	return c.client.XLen(ctx, c.StreamName()).Result()
}

// XTrimMaxLen trims the task stream to a maximum length.
func (c *StreamsClient) XTrimMaxLen(ctx context.Context, maxLen int64) error {
	return c.client.XTrimMaxLen(ctx, c.StreamName(), maxLen).Err()
}

// ZAddDelayed schedules a serialized message for later promotion.
func (c *StreamsClient) ZAddDelayed(ctx context.Context, dueAt time.Time, payload string) error {
	return c.client.ZAdd(ctx, c.DelayedSetName(), redis.Z{
		Score:  float64(dueAt.UnixMilli()),
		Member: payload,
	}).Err()
}

// ZDueMessages returns delayed messages due at or before the given instant.
func (c *StreamsClient) ZDueMessages(ctx context.Context, now time.Time, count int64) ([]string, error) {
	return c.client.ZRangeByScore(ctx, c.DelayedSetName(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: count,
	}).Result()
}

// ZRemDelayed removes promoted messages from the delayed set.
func (c *StreamsClient) ZRemDelayed(ctx context.Context, payloads ...string) error {
	members := make([]any, len(payloads))
	for i, p := range payloads {
		members[i] = p
	}
	return c.client.ZRem(ctx, c.DelayedSetName(), members...).Err()
}
