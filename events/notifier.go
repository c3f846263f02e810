// Package events carries the process-wide "streak data changed" signal.
// The notifier is injected into whatever composes a coordinator; there is
// no ambient global instance.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Notifier fans a payload-free change signal out to current subscribers.
// Delivery is at-most-once per Notify call and lossy: a subscriber whose
// one-slot buffer is full, or that subscribes later, misses the signal.
// The live Firestore subscriptions remain the source of truth.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[string]chan struct{}),
	}
}

// Subscribe registers a listener and returns its id along with the channel
// the signal arrives on. The caller must Unsubscribe with the same id when
// the owning view goes away.
func (n *Notifier) Subscribe() (string, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan struct{}, 1)
	n.subs[id] = ch
	return id, ch
}

func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs, id)
}

// Notify signals every active subscriber that streak data may have changed.
// Never blocks.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
