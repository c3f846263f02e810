package auth

import (
	"sync"

	"github.com/google/uuid"
)

// State broadcasts the current identity, or nil once signed out, to
// subscribers. Delivery is conflated: a subscriber always observes the
// latest identity, not every transition.
type State struct {
	mu      sync.Mutex
	current *Identity
	subs    map[string]chan *Identity
}

func NewState() *State {
	return &State{
		subs: make(map[string]chan *Identity),
	}
}

func (s *State) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *State) Set(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	s.broadcast(id)
}

func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.broadcast(nil)
}

// Subscribe registers a listener for identity changes. The caller must
// Unsubscribe with the returned id when done.
func (s *State) Subscribe() (string, <-chan *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	ch := make(chan *Identity, 1)
	s.subs[id] = ch
	return id, ch
}

func (s *State) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

// broadcast must be called with the lock held. Replaces any pending value
// so slow subscribers see the latest identity only.
func (s *State) broadcast(id *Identity) {
	for _, ch := range s.subs {
		select {
		case ch <- id:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- id:
		default:
		}
	}
}
