// Package syncer pushes the local cart to the server opportunistically:
// debounced after changes, on a heartbeat, and on demand, never while logged
// out and never with more than one push outstanding.
package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/metrics"
	"github.com/storefront/cartsync/internal/schedule"
)

const (
	DefaultDebounce  = time.Second
	DefaultHeartbeat = 30 * time.Second
)

// ErrPushInFlight is returned by PushNow when another push is outstanding.
// The push is not lost: a follow-up is scheduled once the current one ends.
var ErrPushInFlight = errors.New("cart push already in flight")

const (
	triggerDebounce  = "debounce"
	triggerHeartbeat = "heartbeat"
	triggerDemand    = "reconcile"
)

// LocalCart is the subset of the Cart Store the scheduler reads.
type LocalCart interface {
	Snapshot() domain.CartSnapshot
	Subscribe(fn func(domain.CartSnapshot)) (unsubscribe func())
}

// AuthGate reports whether network access is currently allowed.
type AuthGate interface {
	Authenticated() bool
}

// Invalidator drops the stored credential and announces the logout.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Config tunes the two automatic triggers.
type Config struct {
	Debounce  time.Duration
	Heartbeat time.Duration
}

// Scheduler owns the push triggers for one client instance.
type Scheduler struct {
	cart   LocalCart
	api    ports.CartAPI
	auth   AuthGate
	creds  Invalidator
	timers *schedule.Group
	cfg    Config
	log    zerolog.Logger

	inFlight atomic.Bool
	pending  atomic.Bool
	paused   atomic.Bool

	mu          sync.Mutex
	debounce    *schedule.Debouncer
	unsubscribe func()
	started     bool
}

// New returns a stopped Scheduler. Zero durations select the defaults.
func New(
	cart LocalCart,
	api ports.CartAPI,
	auth AuthGate,
	creds Invalidator,
	clock schedule.Clock,
	cfg Config,
	log zerolog.Logger,
) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	return &Scheduler{
		cart:   cart,
		api:    api,
		auth:   auth,
		creds:  creds,
		timers: schedule.NewGroup(clock),
		cfg:    cfg,
		log:    log.With().Str("component", "sync_scheduler").Logger(),
	}
}

// Start subscribes to cart changes and arms the heartbeat. ctx bounds every
// push the timers start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.debounce = s.timers.Debounce(s.cfg.Debounce, func() { _ = s.push(ctx, triggerDebounce) })
	s.unsubscribe = s.cart.Subscribe(func(domain.CartSnapshot) { s.Notify() })
	s.timers.Every(s.cfg.Heartbeat, func() { _ = s.push(ctx, triggerHeartbeat) })
}

// Notify restarts the debounce window. The Cart Store calls it on every change.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	d := s.debounce
	s.mu.Unlock()
	if d != nil {
		d.Trigger()
	}
}

// PushNow pushes immediately, subject to the same gates as the timers.
func (s *Scheduler) PushNow(ctx context.Context) error {
	return s.push(ctx, triggerDemand)
}

// Pause holds the debounce and heartbeat pushes. PushNow is not affected.
// A trigger suppressed while paused leaves the pending marker set.
func (s *Scheduler) Pause() {
	s.paused.Store(true)
}

// Resume lifts Pause and re-arms the debounce if a trigger was held.
func (s *Scheduler) Resume() {
	if !s.paused.Swap(false) {
		return
	}
	if s.pending.Swap(false) {
		s.Notify()
	}
}

// Paused reports whether automatic pushes are held.
func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// InFlight reports whether a push is outstanding.
func (s *Scheduler) InFlight() bool {
	return s.inFlight.Load()
}

// Close cancels the debounce and heartbeat and detaches from the cart.
// A push already on the network completes but schedules nothing further.
func (s *Scheduler) Close() {
	s.timers.Stop()

	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Scheduler) push(ctx context.Context, trigger string) error {
	if !s.auth.Authenticated() {
		metrics.SyncSkippedTotal.WithLabelValues("unauthenticated").Inc()
		return nil
	}
	snap := s.cart.Snapshot()
	if snap.IsEmpty() {
		metrics.SyncSkippedTotal.WithLabelValues("empty").Inc()
		return nil
	}
	if trigger != triggerDemand && s.paused.Load() {
		s.pending.Store(true)
		metrics.SyncSkippedTotal.WithLabelValues("paused").Inc()
		s.log.Debug().Str("trigger", trigger).Msg("push held until reconciliation finishes")
		return nil
	}

	// Check-and-set happens before the network call, so at most one push
	// is outstanding. A rejected trigger leaves a single pending marker.
	if !s.inFlight.CompareAndSwap(false, true) {
		s.pending.Store(true)
		metrics.SyncSkippedTotal.WithLabelValues("in_flight").Inc()
		s.log.Debug().Str("trigger", trigger).Msg("push skipped, another is in flight")
		return ErrPushInFlight
	}

	start := time.Now()
	err := s.api.PushCart(ctx, snap.Lines)
	metrics.SyncPushDuration.Observe(time.Since(start).Seconds())
	s.inFlight.Store(false)

	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.SyncPushesTotal.WithLabelValues(trigger, "unauthorized").Inc()
		s.log.Warn().Str("trigger", trigger).Msg("server rejected credential, logging out")
		s.pending.Store(false)
		s.creds.Invalidate(ctx)
		return err
	case err != nil:
		metrics.SyncPushesTotal.WithLabelValues(trigger, "error").Inc()
		s.log.Warn().Err(err).Str("trigger", trigger).Msg("cart push failed, will retry on next trigger")
	default:
		metrics.SyncPushesTotal.WithLabelValues(trigger, "ok").Inc()
		s.log.Debug().
			Str("trigger", trigger).
			Int("items", snap.TotalItems).
			Str("total", snap.TotalAmount.StringFixed(2)).
			Msg("cart pushed")
	}

	if s.pending.Swap(false) {
		s.Notify()
	}
	return err
}
