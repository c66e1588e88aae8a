package bus

import "context"

// Handler is invoked for a message on a matching subscription.
type Handler func(topic string, payload []byte)

// Publisher is the minimal publish contract the orchestrator depends on.
// Implementations return transport errors to the caller; the
// orchestrator treats publishes as best-effort and logs and swallows them.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
	Close() error
}

// Subscriber lets the orchestrator register pattern-matched handlers for
// inbound motion-start/motion-stop messages.
type Subscriber interface {
	Subscribe(topics []string, handler Handler) error
}

// Client is the full event-bus contract: publish, subscribe, and
// lifecycle.
type Client interface {
	Publisher
	Subscriber
}
