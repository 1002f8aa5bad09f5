package storage

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisRealtime implements Realtime on go-redis: every collection path maps
// to a hash holding its records and a pub/sub channel carrying full
// snapshots. Writers publish the whole collection after each change, so
// subscribers never merge partial state.
type RedisRealtime struct {
	client *redis.Client
}

func NewRedisRealtime(client *redis.Client) *RedisRealtime {
	return &RedisRealtime{client: client}
}

func hashKey(path string) string    { return "rt:" + path }
func channelKey(path string) string { return "rtch:" + path }

func (r *RedisRealtime) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, channelKey(path))
	// Force the SUBSCRIBE round trip so no published snapshot is missed
	// between the initial read below and the first channel delivery.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	sub := newSubscription(8, func() {
		close(done)
		pubsub.Close()
	})

	initial, err := r.snapshot(ctx, path)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	sub.deliver(initial)

	go func() {
		defer close(sub.updates)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					log.Printf("realtime: dropping malformed snapshot for %s: %v", path, err)
					continue
				}
				sub.deliver(snap)
			}
		}
	}()

	return sub, nil
}

func (r *RedisRealtime) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key := uuid.NewString()
	if err := r.Set(ctx, path, key, value); err != nil {
		return "", err
	}
	return key, nil
}

func (r *RedisRealtime) Set(ctx context.Context, path string, key string, value interface{}) error {
	raw, err := marshalValue(value)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, hashKey(path), key, string(raw)).Err(); err != nil {
		return err
	}

	snap, err := r.snapshot(ctx, path)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channelKey(path), string(payload)).Err()
}

func (r *RedisRealtime) snapshot(ctx context.Context, path string) (Snapshot, error) {
	fields, err := r.client.HGetAll(ctx, hashKey(path)).Result()
	if err != nil {
		return nil, err
	}
	snap := Snapshot{}
	for k, v := range fields {
		snap[k] = json.RawMessage(v)
	}
	return snap, nil
}
