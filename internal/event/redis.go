package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster publishes live-update payloads to Redis pub/sub
// channels. Dashboard processes subscribe to the same channels.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster connects to Redis and verifies connectivity.
func NewRedisBroadcaster(ctx context.Context, addr, password string, db int) (*RedisBroadcaster, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBroadcaster{client: cli}, nil
}

// Broadcast publishes the JSON-encoded payload on the channel.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode broadcast payload: %w", err)
	}
	return b.client.Publish(ctx, channel, data).Err()
}

// Close releases the underlying Redis connection.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}

var _ Broadcaster = (*RedisBroadcaster)(nil)
