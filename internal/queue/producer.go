package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storefront/internal/tasks"
)

// Producer appends tasks to a Redis stream trimmed to roughly maxLen entries.
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewProducer(client *redis.Client, stream string, maxLen int64) *Producer {
	return &Producer{client: client, stream: stream, maxLen: maxLen}
}

func (p *Producer) Enqueue(ctx context.Context, task tasks.Task) error {
	if _, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: task.Values(),
	}).Result(); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type, err)
	}
	return nil
}
