package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes restoration progress onto a Redis Stream so
// operator tooling can follow a pass live.
type RedisTransport struct {
	client *redis.Client
	stream string
}

var _ Transport = (*RedisTransport)(nil)

func NewRedisTransport(url, stream string) (*RedisTransport, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisTransport{client: client, stream: stream}, nil
}

func (t *RedisTransport) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: t.stream,
		Values: map[string]interface{}{
			"run_id":  ev.RunID,
			"payload": string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", t.stream, err)
	}
	return nil
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
