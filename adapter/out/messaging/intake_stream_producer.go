// Package messaging publishes pipeline events to Redis Streams.
package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"intake_server/core/port/out"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultStream = "messages:processed"

	// EventMessageProcessed is the type field of events on the stream.
	EventMessageProcessed = "message.processed"

	defaultMaxLen = 100000
)

// RedisProducer implements out.EventPublisher using Redis Streams.
type RedisProducer struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ out.EventPublisher = (*RedisProducer)(nil)

func NewRedisProducer(client *redis.Client, stream string) *RedisProducer {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisProducer{client: client, stream: stream, maxLen: defaultMaxLen}
}

func (p *RedisProducer) PublishMessageProcessed(ctx context.Context, evt *out.MessageProcessedEvent) error {
	values, err := streamValues(EventMessageProcessed, evt)
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		ID:     "*",
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.stream, err)
	}

	return nil
}

func streamValues(eventType string, payload interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": eventType,
		"data": string(data),
	}, nil
}
