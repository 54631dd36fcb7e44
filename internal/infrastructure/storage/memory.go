// Package storage holds the in-process implementation of shared client
// storage. Several instances (tabs) share one Memory; each sees the others'
// writes through Watch, never its own.
package storage

import (
	"context"
	"sync"

	"github.com/storefront/cartsync/internal/core/ports"
)

// Memory is the shared backing store.
type Memory struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[int]watcher
	nextID   int
}

type watcher struct {
	origin string
	fn     func(ports.StorageEvent)
}

// NewMemory returns an empty shared store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]string),
		watchers: make(map[int]watcher),
	}
}

// Tab returns the view of the store used by the instance with the given id.
func (m *Memory) Tab(origin string) *Tab {
	return &Tab{mem: m, origin: origin}
}

func (m *Memory) notify(ev ports.StorageEvent) {
	m.mu.RLock()
	targets := make([]func(ports.StorageEvent), 0, len(m.watchers))
	for _, w := range m.watchers {
		if w.origin != ev.Origin {
			targets = append(targets, w.fn)
		}
	}
	m.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Tab is one instance's handle on a Memory. It implements ports.SharedStorage.
type Tab struct {
	mem    *Memory
	origin string
}

var _ ports.SharedStorage = (*Tab)(nil)

func (t *Tab) Get(_ context.Context, key string) (string, bool, error) {
	t.mem.mu.RLock()
	defer t.mem.mu.RUnlock()
	v, ok := t.mem.data[key]
	return v, ok, nil
}

func (t *Tab) Set(_ context.Context, key, value string) error {
	t.mem.mu.Lock()
	t.mem.data[key] = value
	t.mem.mu.Unlock()

	t.mem.notify(ports.StorageEvent{Key: key, Origin: t.origin})
	return nil
}

func (t *Tab) Delete(_ context.Context, key string) error {
	t.mem.mu.Lock()
	_, existed := t.mem.data[key]
	delete(t.mem.data, key)
	t.mem.mu.Unlock()

	if existed {
		t.mem.notify(ports.StorageEvent{Key: key, Origin: t.origin})
	}
	return nil
}

// Watch registers fn for writes made by other tabs. Events are delivered
// synchronously on the writer's goroutine.
func (t *Tab) Watch(ctx context.Context, fn func(ports.StorageEvent)) (func(), error) {
	m := t.mem
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = watcher{origin: t.origin, fn: fn}
	m.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
		})
	}

	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			stop()
		}()
	}
	return stop, nil
}
