package schedule

import (
	"sync"
	"time"
)

// Group owns a set of timers. Stop cancels all of them at once; after Stop no
// new timer can be armed and no callback that has not already started runs.
type Group struct {
	clock Clock

	mu      sync.Mutex
	handles map[*Handle]struct{}
	stopped bool
}

// NewGroup returns a Group whose timers are created by clock.
func NewGroup(clock Clock) *Group {
	if clock == nil {
		clock = System()
	}
	return &Group{clock: clock, handles: make(map[*Handle]struct{})}
}

// Clock returns the clock the group schedules on.
func (g *Group) Clock() Clock { return g.clock }

// Handle is a cancellable one-shot or repeating timer.
type Handle struct {
	group *Group

	mu        sync.Mutex
	timer     Timer
	cancelled bool
}

// Cancel stops the timer. Safe to call more than once and from callbacks.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()

	if h.group != nil {
		h.group.release(h)
	}
}

// Active reports whether the timer may still fire.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.cancelled
}

// After runs fn once after d.
func (g *Group) After(d time.Duration, fn func()) *Handle {
	h, ok := g.track()
	if !ok {
		return h
	}

	h.mu.Lock()
	h.timer = g.clock.AfterFunc(d, func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.cancelled = true
		h.mu.Unlock()

		g.release(h)
		fn()
	})
	h.mu.Unlock()
	return h
}

// Every runs fn every interval until cancelled. The next tick is armed before
// fn runs, so a slow fn does not stretch the period.
func (g *Group) Every(interval time.Duration, fn func()) *Handle {
	h, ok := g.track()
	if !ok {
		return h
	}

	var tick func()
	tick = func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.timer = g.clock.AfterFunc(interval, tick)
		h.mu.Unlock()
		fn()
	}

	h.mu.Lock()
	h.timer = g.clock.AfterFunc(interval, tick)
	h.mu.Unlock()
	return h
}

// Stop cancels every timer the group created and refuses new ones.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	pending := make([]*Handle, 0, len(g.handles))
	for h := range g.handles {
		pending = append(pending, h)
	}
	g.handles = make(map[*Handle]struct{})
	g.mu.Unlock()

	for _, h := range pending {
		h.Cancel()
	}
}

// Len returns the number of live timers.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

func (g *Group) track() (*Handle, bool) {
	h := &Handle{group: g}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		h.cancelled = true
		return h, false
	}
	g.handles[h] = struct{}{}
	return h, true
}

func (g *Group) release(h *Handle) {
	g.mu.Lock()
	delete(g.handles, h)
	g.mu.Unlock()
}

// Debouncer delays fn until Trigger has not been called for delay.
type Debouncer struct {
	group *Group
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	pending *Handle
}

// Debounce returns a Debouncer bound to the group's lifetime.
func (g *Group) Debounce(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{group: g, delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Cancel()
	}
	d.pending = d.group.After(d.delay, d.fn)
}

// Pending reports whether a call to fn is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil && d.pending.Active()
}

// Cancel drops a scheduled call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.Cancel()
		d.pending = nil
	}
}
