// Package bus is the topic-based broadcast primitive behind channel
// presence, chat fan-out and private notifications. Subscribers receive
// every payload published to a topic after they subscribed; there is no
// replay for late subscribers.
package bus

import (
	"context"
	"fmt"
)

// Bus is a publish/subscribe broadcast keyed by topic string. The memory
// implementation covers a single instance; the redis implementation covers
// a multi-instance deployment.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string) (*Subscription, error)
	Close() error
}

// Subscription is one subscriber's feed for a single topic. C is closed
// after Close is called.
type Subscription struct {
	C      <-chan []byte
	cancel func()
}

// Close detaches the subscription from its topic. Safe to call twice.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// ChannelTopic is the shared topic of one live channel.
func ChannelTopic(channelID uint) string {
	return fmt.Sprintf("channel:%d", channelID)
}

// UserTopic is the private notification topic of one user.
func UserTopic(userID uint) string {
	return fmt.Sprintf("user-notifications:%d", userID)
}
