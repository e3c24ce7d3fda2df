package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Default consumer group name.
	defaultConsumerGroup = "workers"

	// Default block timeout for reading from the stream.
	defaultBlockTimeout = 5 * time.Second

	// Default count of messages to read per batch.
	defaultBatchSize = 10

	// Default minimum idle time before claiming pending messages.
	defaultClaimMinIdle = 5 * time.Minute

	// Maximum pending messages to check at once.
	maxPendingCheck = 100
)

// Consumer reads tasks from the Redis stream.
type Consumer struct {
	client        *StreamsClient
	consumerGroup string
	consumerID    string
	blockTimeout  time.Duration
	batchSize     int64
	claimMinIdle  time.Duration
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	ConsumerGroup string        // Consumer group name
	ConsumerID    string        // Unique consumer identifier
	BlockTimeout  time.Duration // Block timeout for reads (0 = default)
	BatchSize     int64         // Number of messages per read (0 = default)
	ClaimMinIdle  time.Duration // Min idle time before claiming (0 = default)
}

// ConsumedTask is a task read from the queue, paired with the stream message
// id needed to acknowledge it.
type ConsumedTask struct {
	MessageID string
	Message   *TaskMessage
}

// NewConsumer creates a new task consumer.
func NewConsumer(client *StreamsClient, cfg ConsumerConfig) (*Consumer, error) {
	if cfg.ConsumerID == "" {
		return nil, errors.New("consumer ID is required")
	}

	group := cfg.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}

	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = defaultBlockTimeout
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	claimMinIdle := cfg.ClaimMinIdle
	if claimMinIdle <= 0 {
		claimMinIdle = defaultClaimMinIdle
	}

	return &Consumer{
		client:        client,
		consumerGroup: group,
		consumerID:    cfg.ConsumerID,
		blockTimeout:  blockTimeout,
		batchSize:     batchSize,
		claimMinIdle:  claimMinIdle,
	}, nil
}

// Initialize creates the consumer group for the task stream.
func (c *Consumer) Initialize(ctx context.Context) error {
	if err := c.client.CreateConsumerGroup(ctx, c.consumerGroup); err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}
	return nil
}

// Read returns the next batch of tasks. Stale pending messages abandoned by
// dead consumers are reclaimed first; at-least-once delivery follows from
// this claim-then-ack protocol.
func (c *Consumer) Read(ctx context.Context) ([]*ConsumedTask, error) {
	reclaimed := c.reclaimPending(ctx)
	if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	streams, err := c.client.XReadGroup(ctx, c.consumerGroup, c.consumerID, c.batchSize, c.blockTimeout)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	var tasks []*ConsumedTask
	for _, stream := range streams {
		for i := range stream.Messages {
			task, parseErr := parseMessage(&stream.Messages[i])
			if parseErr != nil {
				// Poison message: ack it away so it cannot wedge the group.
				_ = c.Ack(ctx, stream.Messages[i].ID)
				continue
			}
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

// Ack acknowledges a processed message.
func (c *Consumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.consumerGroup, messageID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", messageID, err)
	}
	return nil
}

// reclaimPending claims messages stuck pending on dead consumers.
func (c *Consumer) reclaimPending(ctx context.Context) []*ConsumedTask {
	pending, err := c.client.XPendingExt(ctx, c.consumerGroup, maxPendingCheck)
	if err != nil || len(pending) == 0 {
		return nil
	}

	var ids []string
	for _, p := range pending {
		if p.Idle >= c.claimMinIdle {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	messages, err := c.client.XClaim(ctx, c.consumerGroup, c.consumerID, c.claimMinIdle, ids...)
	if err != nil {
		return nil
	}

	var tasks []*ConsumedTask
	for i := range messages {
		task, parseErr := parseMessage(&messages[i])
		if parseErr != nil {
			_ = c.Ack(ctx, messages[i].ID)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks
}

// parseMessage deserializes one stream message.
func parseMessage(msg *redis.XMessage) (*ConsumedTask, error) {
	raw, ok := msg.Values[TaskDataField].(string)
	if !ok {
		return nil, fmt.Errorf("message %s has no %s field", msg.ID, TaskDataField)
	}

	var task TaskMessage
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, fmt.Errorf("failed to parse task message %s: %w", msg.ID, err)
	}

	return &ConsumedTask{MessageID: msg.ID, Message: &task}, nil
}
