package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

// Hub delivers live per-user updates over Redis pub/sub. Each user has a
// dedicated channel; subscribers receive only events addressed to them.
type Hub struct {
	rdb *redis.Client
}

func NewHub(rdb *redis.Client) *Hub {
	return &Hub{rdb: rdb}
}

func channelFor(userID uint) string {
	return fmt.Sprintf("notifications:%d", userID)
}

// Publish pushes a payload to a single user's channel.
func (h *Hub) Publish(ctx context.Context, userID uint, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime payload: %w", err)
	}
	return h.rdb.Publish(ctx, channelFor(userID), data).Err()
}

// Subscription is a live handle on one user's channel. The owner must call
// Close when its scope ends; Close is idempotent and releases the underlying
// Redis subscription.
type Subscription struct {
	pubsub    *redis.PubSub
	events    chan []byte
	closeOnce sync.Once
}

// Subscribe opens a subscription for the given user. The returned handle
// delivers raw JSON payloads on Events until Close is called or ctx ends.
func (h *Hub) Subscribe(ctx context.Context, userID uint) (*Subscription, error) {
	pubsub := h.rdb.Subscribe(ctx, channelFor(userID))

	// Force the SUBSCRIBE round trip so a broken connection fails here,
	// not silently inside the pump goroutine.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan []byte, 16),
	}

	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			select {
			case sub.events <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// Events returns the delivery channel. It is closed after Close.
func (s *Subscription) Events() <-chan []byte {
	return s.events
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}
