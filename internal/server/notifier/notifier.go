// Package notifier broadcasts change pings to SSE listeners, grouped by topic.
package notifier

import "sync"

// Notifier pings listeners when a topic changes. A ping carries no data;
// listeners re-read the state they render.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings for topic.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.topics[topic] == nil {
		n.topics[topic] = make(map[chan struct{}]struct{})
	}
	n.topics[topic][ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(topic string, ch chan struct{}) {
	n.mu.Lock()
	if listeners, ok := n.topics[topic]; ok {
		delete(listeners, ch)
		if len(listeners) == 0 {
			delete(n.topics, topic)
		}
	}
	n.mu.Unlock()
	close(ch)
}

// Publish pings every listener of topic.
// Non-blocking: a listener with a pending ping is skipped.
func (n *Notifier) Publish(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ping(n.topics[topic])
}

// Broadcast pings every listener of every topic.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, listeners := range n.topics {
		ping(listeners)
	}
}

// Listeners returns the number of subscribed channels.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	total := 0
	for _, listeners := range n.topics {
		total += len(listeners)
	}
	return total
}

func ping(listeners map[chan struct{}]struct{}) {
	for ch := range listeners {
		select {
		case ch <- struct{}{}:
		default:
			// already pending
		}
	}
}
