package auth

import "sync"

// Signal is an in-process broadcast with no payload: "the credential may have
// changed, re-read it". It lets the instance that performed a login or logout
// update immediately, since storage watchers never report an instance's own
// writes.
type Signal struct {
	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

// NewSignal returns a Signal with no subscribers.
func NewSignal() *Signal {
	return &Signal{subs: make(map[int]func())}
}

// Subscribe registers fn and returns a func that removes it.
func (s *Signal) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Broadcast calls every subscriber synchronously.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
