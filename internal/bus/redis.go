package bus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is the Bus implementation over Redis PUBLISH/SUBSCRIBE, for
// running more than one service instance behind a balancer. Delivery
// guarantees match Redis pub/sub: at-least-once to currently-connected
// subscribers, nothing for late ones.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis creates a redis-backed bus and verifies connectivity.
func NewRedis(ctx context.Context, addr, password string, db int, log *zap.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Redis{client: client, log: log}, nil
}

// Publish sends the payload to the Redis channel named after the topic.
func (b *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a Redis subscription for the topic. A pump goroutine
// copies messages into the subscription channel until Close.
func (b *Redis) Subscribe(topic string) (*Subscription, error) {
	pubsub := b.client.Subscribe(context.Background(), topic)
	// Wait for the subscription to be confirmed so the caller does not
	// miss payloads published right after Subscribe returns.
	if _, err := pubsub.Receive(context.Background()); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- []byte(msg.Payload):
			default:
				b.log.Warn("bus: subscriber buffer full, dropping payload",
					zap.String("topic", topic))
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return &Subscription{C: out, cancel: cancel}, nil
}

// Close closes the underlying Redis client.
func (b *Redis) Close() error {
	return b.client.Close()
}
