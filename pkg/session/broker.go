package session

import (
	"sync"
)

// subscriberBuffer is the number of undelivered messages a subscriber may
// fall behind before further messages to it are dropped.
const subscriberBuffer = 10

// Broker fans out messages published on a topic (a session id, usually) to
// every subscriber of that topic. A slow subscriber never blocks Publish.
type Broker[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan T]struct{}
}

// NewBroker creates an empty Broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[string]map[chan T]struct{}),
	}
}

// Subscribe registers a subscriber for topic. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (b *Broker[T]) Subscribe(topic string) (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[chan T]struct{})
	}
	b.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subscribers, topic)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers msg to the current subscribers of topic and returns how
// many received it.
func (b *Broker[T]) Publish(topic string, msg T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of subscribers of topic.
func (b *Broker[T]) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
