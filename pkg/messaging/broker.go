package messaging

import (
	"context"
)

// Broker moves JSON messages between processes. Messages published to a
// topic reach every subscriber active at the time.
type Broker interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}

// MessageBroker is Broker with callback delivery.
type MessageBroker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
	Close() error
}
