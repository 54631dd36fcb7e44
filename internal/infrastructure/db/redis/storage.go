package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/storefront/cartsync/internal/core/ports"
)

const (
	// KeyPrefix namespaces every client storage key.
	KeyPrefix = "cartsync:"
	// EventsChannel carries one message per write so other instances can react.
	EventsChannel = "cartsync:storage-events"
)

type storageEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Storage is shared client storage backed by Redis. Every write is announced
// on EventsChannel tagged with the writer's origin; Watch skips its own.
type Storage struct {
	client *redis.Client
	origin string
}

var _ ports.SharedStorage = (*Storage)(nil)

// NewStorage wraps client. An empty origin is replaced by a fresh id.
func NewStorage(client *redis.Client, origin string) *Storage {
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Storage{client: client, origin: origin}
}

// Origin returns the id this instance tags its writes with.
func (s *Storage) Origin() string { return s.origin }

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, KeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	msg, err := s.event(key)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, KeyPrefix+key, value, 0)
		pipe.Publish(ctx, EventsChannel, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key announces nothing.
func (s *Storage) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, KeyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("storage delete %s: %w", key, err)
	}
	if n == 0 {
		return nil
	}
	msg, err := s.event(key)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, EventsChannel, msg).Err(); err != nil {
		return fmt.Errorf("storage announce %s: %w", key, err)
	}
	return nil
}

// Watch subscribes to EventsChannel. The subscription is confirmed before
// Watch returns; fn runs on a dedicated goroutine.
func (s *Storage) Watch(ctx context.Context, fn func(ports.StorageEvent)) (func(), error) {
	sub := s.client.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("storage watch: %w", err)
	}

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}

	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				stop()
				return
			case <-done:
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				var ev storageEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil || ev.Origin == s.origin {
					continue
				}
				fn(ports.StorageEvent{Key: ev.Key, Origin: ev.Origin})
			}
		}
	}()
	return stop, nil
}

func (s *Storage) event(key string) (string, error) {
	b, err := json.Marshal(storageEvent{Key: key, Origin: s.origin})
	if err != nil {
		return "", fmt.Errorf("encode storage event: %w", err)
	}
	return string(b), nil
}
