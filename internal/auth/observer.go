package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/metrics"
	"github.com/storefront/cartsync/internal/schedule"
)

// DefaultPollInterval is the backstop poll period.
const DefaultPollInterval = 5 * time.Second

// Observer keeps the current "is a credential present" value up to date from
// three sources: the in-process Signal, storage events from other instances,
// and a coarse poll.
type Observer struct {
	creds    *Credentials
	signal   *Signal
	watcher  ports.StorageWatcher
	timers   *schedule.Group
	interval time.Duration
	log      zerolog.Logger

	refreshMu sync.Mutex

	mu            sync.Mutex
	authenticated bool
	started       bool
	closed        bool
	subs          map[int]func(bool)
	nextID        int
	release       []func()
}

// NewObserver builds an Observer. watcher may be nil when the storage cannot
// report foreign writes; the poll then carries cross-instance changes alone.
func NewObserver(
	creds *Credentials,
	signal *Signal,
	watcher ports.StorageWatcher,
	clock schedule.Clock,
	interval time.Duration,
	log zerolog.Logger,
) *Observer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Observer{
		creds:    creds,
		signal:   signal,
		watcher:  watcher,
		timers:   schedule.NewGroup(clock),
		interval: interval,
		log:      log.With().Str("component", "auth_observer").Logger(),
		subs:     make(map[int]func(bool)),
	}
}

// Start reads the credential once and begins listening. ctx bounds every
// later storage read. Subscribers registered before Start see the initial
// value if it is authenticated.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started || o.closed {
		o.mu.Unlock()
		return nil
	}
	o.started = true
	o.mu.Unlock()

	o.refresh(ctx)

	release := []func(){o.signal.Subscribe(func() { o.refresh(ctx) })}
	if o.watcher != nil {
		stop, err := o.watcher.Watch(ctx, func(ev ports.StorageEvent) {
			if ev.Key == TokenKey {
				o.refresh(ctx)
			}
		})
		if err != nil {
			for _, fn := range release {
				fn()
			}
			return err
		}
		release = append(release, stop)
	}
	o.timers.Every(o.interval, func() { o.refresh(ctx) })

	o.mu.Lock()
	o.release = release
	o.mu.Unlock()
	return nil
}

// Authenticated returns the current value.
func (o *Observer) Authenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.authenticated
}

// Subscribe registers fn for transitions. fn receives the new value and runs
// on whichever goroutine noticed the change. Calls are serialized and arrive
// in transition order, so fn must not block or call back into the Observer.
func (o *Observer) Subscribe(fn func(authenticated bool)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Refresh re-reads the credential now.
func (o *Observer) Refresh(ctx context.Context) {
	o.refresh(ctx)
}

// Close stops the poll and detaches from the signal and storage events.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	release := o.release
	o.release = nil
	o.mu.Unlock()

	o.timers.Stop()
	for _, fn := range release {
		fn()
	}
}

// refresh delivers under refreshMu so subscribers see transitions one at a
// time and in the order the value flipped.
func (o *Observer) refresh(ctx context.Context) {
	o.refreshMu.Lock()
	defer o.refreshMu.Unlock()
	present := o.creds.Present(ctx)

	o.mu.Lock()
	if o.closed || present == o.authenticated {
		o.mu.Unlock()
		return
	}
	o.authenticated = present
	fns := make([]func(bool), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	state := "unauthenticated"
	if present {
		state = "authenticated"
	}
	metrics.AuthTransitionsTotal.WithLabelValues(state).Inc()
	o.log.Info().Str("state", state).Msg("auth state changed")

	for _, fn := range fns {
		fn(present)
	}
}
