package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus carries domain events over Redis pub/sub. A single instance
// serves both directions and satisfies Publisher and Subscriber.
type RedisBus struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBus(client *redis.Client, log *zap.Logger) *RedisBus {
	return &RedisBus{client: client, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, stream string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	if err := b.client.Publish(ctx, stream, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

// Subscribe confirms the subscription, then decodes events off the stream
// and hands them to handler until ctx is canceled. A payload one producer
// got wrong must not take down every consumer, so undecodable messages are
// logged and dropped.
func (b *RedisBus) Subscribe(ctx context.Context, stream string, handler func(Event)) error {
	pubsub := b.client.Subscribe(ctx, stream)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", stream, err)
	}
	go b.consume(ctx, pubsub, stream, handler)
	return nil
}

func (b *RedisBus) consume(ctx context.Context, pubsub *redis.PubSub, stream string, handler func(Event)) {
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, err := decodeEvent(msg.Payload)
			if err != nil {
				b.log.Warn("dropping undecodable event",
					zap.String("stream", stream), zap.Error(err))
				continue
			}
			handler(event)
		}
	}
}

func decodeEvent(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, err
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event without a type")
	}
	return event, nil
}
