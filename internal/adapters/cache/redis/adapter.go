package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

const (
	recordKeyPrefix = "tezui:record:"
	ChangeChannel   = "tezui:changes"
)

type RedisAdapter struct {
	client *redis.Client
}

var (
	_ ports.RecordCache  = (*RedisAdapter)(nil)
	_ ports.ChangePubSub = (*RedisAdapter)(nil)
)

// NewRedisAdapter parses url and returns the adapter with its client.
func NewRedisAdapter(url string) (*RedisAdapter, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	return NewWithClient(client), client, nil
}

func NewWithClient(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func recordKey(t domain.EntityType, id string) string {
	return recordKeyPrefix + string(t) + ":" + id
}

// Cache implementation
func (r *RedisAdapter) Get(ctx context.Context, t domain.EntityType, id string) (*record.Record, error) {
	data, err := r.client.Get(ctx, recordKey(t, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec, err := record.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached %s:%s: %w", t, id, err)
	}
	return rec, nil
}

func (r *RedisAdapter) Set(ctx context.Context, rec *record.Record, ttl time.Duration) error {
	data, err := record.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, recordKey(rec.Type, rec.ID), data, ttl).Err()
}

func (r *RedisAdapter) Invalidate(ctx context.Context, t domain.EntityType, id string) error {
	return r.client.Del(ctx, recordKey(t, id)).Err()
}

// PubSub implementation
func (r *RedisAdapter) PublishChange(ctx context.Context, c domain.Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, ChangeChannel, data).Err()
}

// SubscribeChanges delivers changes until ctx is done.
func (r *RedisAdapter) SubscribeChanges(ctx context.Context) (<-chan domain.Change, error) {
	pubsub := r.client.Subscribe(ctx, ChangeChannel)
	// Wait for the subscription so no change published afterwards is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}
	ch := make(chan domain.Change)

	go func() {
		defer pubsub.Close()
		defer close(ch)

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c domain.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					logger.Warn("Dropping malformed change", "payload", msg.Payload, "error", err)
					continue
				}
				select {
				case ch <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Ping checks the redis connection.
func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
