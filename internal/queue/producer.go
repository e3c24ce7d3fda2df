package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// TaskDataField is the field name for the serialized task in stream messages.
	TaskDataField = "task"

	// Default max stream length to prevent unbounded growth.
	defaultMaxStreamLen = 10000

	// promoteBatchSize caps how many delayed messages one promotion moves.
	promoteBatchSize = 256
)

// TaskMessage is one unit of deferred work.
type TaskMessage struct {
	ID         string         `json:"id"`
	Task       string         `json:"task"`
	Args       map[string]any `json:"args,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	// NotBefore is the earliest delivery instant for delayed messages.
	NotBefore time.Time `json:"not_before,omitempty"`
}

// Int64Arg reads an integer argument. JSON round-trips numbers as float64.
func (m *TaskMessage) Int64Arg(key string) (int64, bool) {
	v, ok := m.Args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// StringArg reads a string argument.
func (m *TaskMessage) StringArg(key string) (string, bool) {
	v, ok := m.Args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Producer enqueues tasks onto the Redis stream.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	MaxStreamLen int64 // Maximum stream length (0 = default)
}

// NewProducer creates a new task producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}
	return &Producer{client: client, maxStreamLen: maxLen}
}

// Enqueue adds a task to the queue. A positive countdown defers delivery by
// parking the message in the delayed set until it is due.
func (p *Producer) Enqueue(ctx context.Context, task string, args map[string]any, countdown time.Duration) (string, error) {
	if task == "" {
		return "", errors.New("task name cannot be empty")
	}

	msg := TaskMessage{
		ID:         uuid.New().String(),
		Task:       task,
		Args:       args,
		EnqueuedAt: time.Now().UTC(),
	}

	if countdown > 0 {
		msg.NotBefore = msg.EnqueuedAt.Add(countdown)
		payload, marshalErr := json.Marshal(&msg)
		if marshalErr != nil {
			return "", fmt.Errorf("failed to serialize task: %w", marshalErr)
		}
		if addErr := p.client.ZAddDelayed(ctx, msg.NotBefore, string(payload)); addErr != nil {
			return "", fmt.Errorf("failed to enqueue delayed task %s: %w", task, addErr)
		}
		return msg.ID, nil
	}

	if err := p.add(ctx, &msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PromoteDue moves delayed messages whose countdown has elapsed into the
// stream. Returns the number promoted.
func (p *Producer) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	payloads, err := p.client.ZDueMessages(ctx, now, promoteBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed tasks: %w", err)
	}
	if len(payloads) == 0 {
		return 0, nil
	}

	promoted := 0
	for _, payload := range payloads {
		var msg TaskMessage
		if unmarshalErr := json.Unmarshal([]byte(payload), &msg); unmarshalErr != nil {
			// Unparseable members would wedge the set; drop them.
			_ = p.client.ZRemDelayed(ctx, payload)
			continue
		}
		if addErr := p.add(ctx, &msg); addErr != nil {
			return promoted, addErr
		}
		if remErr := p.client.ZRemDelayed(ctx, payload); remErr != nil {
			return promoted, fmt.Errorf("failed to remove promoted task: %w", remErr)
		}
		promoted++
	}

	return promoted, nil
}

// QueueDepth returns the current stream length.
func (p *Producer) QueueDepth(ctx context.Context) (int64, error) {
	return p.client.XLen(ctx)
}

// TrimStream trims the stream to the maximum length.
func (p *Producer) TrimStream(ctx context.Context) error {
	return p.client.XTrimMaxLen(ctx, p.maxStreamLen)
}

func (p *Producer) add(ctx context.Context, msg *TaskMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize task: %w", err)
	}

	if _, addErr := p.client.XAdd(ctx, map[string]any{TaskDataField: string(data)}); addErr != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", msg.Task, addErr)
	}
	return nil
}
