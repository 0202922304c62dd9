// Package notifier fans out "analysis stored" events to live subscribers.
package notifier

import (
	"sync"

	"github.com/klesify/klesify-backend/pkg/core"
)

// buffer is how many events a slow subscriber may fall behind by before
// events are dropped for it.
const buffer = 8

// Notifier broadcasts analysis summaries to every subscriber.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan core.AnalysisSummary]struct{}
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan core.AnalysisSummary]struct{}),
	}
}

// Subscribe returns a channel that receives every broadcast summary.
// Call Unsubscribe when done.
func (n *Notifier) Subscribe() chan core.AnalysisSummary {
	ch := make(chan core.AnalysisSummary, buffer)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan core.AnalysisSummary) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast sends s to all listeners without blocking. Listeners whose
// buffer is full miss the event.
func (n *Notifier) Broadcast(s core.AnalysisSummary) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- s:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
