package bus

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const subscriberBuffer = 256

// Memory is the in-process Bus implementation: a mutex-guarded map of
// topic -> subscriber set with buffered per-subscriber channels.
type Memory struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySub]struct{}
	closed bool
	log    *zap.Logger
}

type memorySub struct {
	ch   chan []byte
	once sync.Once
}

// NewMemory creates an in-process bus.
func NewMemory(log *zap.Logger) *Memory {
	return &Memory{
		topics: make(map[string]map[*memorySub]struct{}),
		log:    log,
	}
}

// Subscribe attaches a new subscriber to the topic.
func (b *Memory) Subscribe(topic string) (*Subscription, error) {
	sub := &memorySub{ch: make(chan []byte, subscriberBuffer)}

	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySub]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if m, ok := b.topics[topic]; ok {
			if _, ok := m[sub]; ok {
				delete(m, sub)
				if len(m) == 0 {
					delete(b.topics, topic)
				}
				sub.once.Do(func() { close(sub.ch) })
			}
		}
		b.mu.Unlock()
	}
	return &Subscription{C: sub.ch, cancel: cancel}, nil
}

// Publish fans the payload out to every current subscriber of the topic.
// A subscriber whose buffer is full misses the payload; slow consumers
// must not stall the rest of the channel.
func (b *Memory) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	subs := make([]*memorySub, 0, len(b.topics[topic]))
	for s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- payload:
		default:
			b.log.Warn("bus: subscriber buffer full, dropping payload",
				zap.String("topic", topic))
		}
	}
	return nil
}

// Close closes every subscription.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, m := range b.topics {
		for s := range m {
			s.once.Do(func() { close(s.ch) })
		}
		delete(b.topics, topic)
	}
	return nil
}
