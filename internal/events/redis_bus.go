package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus broadcasts domain events over Redis pub/sub. Each event goes to
// a channel named "<prefix>:<event>"; a Socket.IO gateway (or any other
// transport) subscribes and relays to browsers.
type RedisBus struct {
	client *redis.Client
	prefix string
}

// NewRedisBus constructs a Redis-backed event bus.
func NewRedisBus(client *redis.Client, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "forum"
	}
	return &RedisBus{client: client, prefix: prefix}
}

type envelope struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// Emit publishes the event. Errors are returned for the caller to log;
// emission is never part of the durability contract.
func (b *RedisBus) Emit(ctx context.Context, name string, payload interface{}) error {
	raw, err := json.Marshal(envelope{Event: name, Payload: payload, EmittedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", name, err)
	}
	channel := fmt.Sprintf("%s:%s", b.prefix, name)
	if err := b.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", name, err)
	}
	return nil
}

// NopBus discards every event. Used when broadcasting is disabled and in
// tests that do not assert on emissions.
type NopBus struct{}

// Emit implements Bus.
func (NopBus) Emit(context.Context, string, interface{}) error { return nil }
