package eventbus

import (
	asaskevichEventBus "github.com/mysteriumnetwork/EventBus"
)

// EventBus allows subscribing and publishing data by topic.
type EventBus interface {
	Publisher
	Subscriber
}

// Publisher publishes events.
type Publisher interface {
	Publish(topic string, data interface{})
}

// Subscriber subscribes to events. Handlers run synchronously on the
// publisher's goroutine.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
	Unsubscribe(topic string, fn interface{}) error
}

type simplifiedEventBus struct {
	bus asaskevichEventBus.Bus
}

// New returns an EventBus backed by a fresh underlying bus.
func New() EventBus {
	return &simplifiedEventBus{bus: asaskevichEventBus.New()}
}

func (b *simplifiedEventBus) Publish(topic string, data interface{}) {
	b.bus.Publish(topic, data)
}

func (b *simplifiedEventBus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

func (b *simplifiedEventBus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}
