// Package notifier fans change events out to streaming listeners.
package notifier

import (
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/sqlfront/pkg/changefeed"
)

// DefaultBuffer is the per-listener queue length.
const DefaultBuffer = 64

// Notifier broadcasts change events to all subscribed listeners. A listener
// that falls behind loses events rather than stalling the broadcaster.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan changefeed.Event]struct{}
	dropped   atomic.Uint64
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan changefeed.Event]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast events. buffer <= 0
// means DefaultBuffer. The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(buffer int) chan changefeed.Event {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan changefeed.Event, buffer)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan changefeed.Event) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Broadcast queues ev for every listener without blocking.
func (n *Notifier) Broadcast(ev changefeed.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
			n.dropped.Add(1)
		}
	}
}

// Listeners returns the number of subscribed listeners.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Dropped returns how many events were discarded for slow listeners.
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}
