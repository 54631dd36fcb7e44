// Package session wires the cart replication components for one client
// instance and owns their lifecycle.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/auth"
	"github.com/storefront/cartsync/internal/cart"
	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/reconcile"
	"github.com/storefront/cartsync/internal/schedule"
	"github.com/storefront/cartsync/internal/syncer"
)

// Options configures a Session. Storage and one of API or NewAPI are required.
type Options struct {
	Storage ports.Storage
	Watcher ports.StorageWatcher // optional; nil leaves cross-instance changes to the poll
	API     ports.CartAPI
	// NewAPI builds the API over the session's own credentials when API is nil.
	NewAPI   func(creds *auth.Credentials) ports.CartAPI
	Prompter reconcile.Prompter
	Clock    schedule.Clock // nil selects the wall clock

	PollInterval time.Duration
	Debounce     time.Duration
	Heartbeat    time.Duration
	Tolerance    decimal.Decimal

	// OnReconciled, if set, is called after every reconciliation pass.
	OnReconciled func(reconcile.Result)
}

// Session is the explicit state container handed to the UI layer.
type Session struct {
	Cart        *cart.Store
	Credentials *auth.Credentials
	Observer    *auth.Observer
	Engine      *reconcile.Engine
	Scheduler   *syncer.Scheduler

	onReconciled func(reconcile.Result)
	log          zerolog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	unsub   func()
	epoch   uint64
	queue   []authEvent
	wake    chan struct{}
	done    chan struct{}
}

// authEvent is one observed transition. epoch numbers transitions in the
// order the observer delivered them.
type authEvent struct {
	authenticated bool
	epoch         uint64
}

// New builds every component. Nothing runs until Start.
func New(opts Options, log zerolog.Logger) (*Session, error) {
	if opts.Storage == nil || (opts.API == nil && opts.NewAPI == nil) {
		return nil, errors.New("session: storage and api are required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = schedule.System()
	}

	signal := auth.NewSignal()
	creds := auth.NewCredentials(opts.Storage, signal, clock.Now, log)
	api := opts.API
	if api == nil {
		api = opts.NewAPI(creds)
	}
	observer := auth.NewObserver(creds, signal, opts.Watcher, clock, opts.PollInterval, log)
	store := cart.NewStore(opts.Storage, log)
	scheduler := syncer.New(store, api, observer, creds, clock, syncer.Config{
		Debounce:  opts.Debounce,
		Heartbeat: opts.Heartbeat,
	}, log)
	engine := reconcile.NewEngine(reconcile.Config{
		Cart:      store,
		API:       api,
		Pusher:    scheduler,
		Prompter:  opts.Prompter,
		Creds:     creds,
		Tolerance: opts.Tolerance,
	}, log)

	// Automatic pushes stay held until a login has been reconciled, so a
	// debounce or heartbeat cannot overwrite the account cart first.
	scheduler.Pause()

	return &Session{
		Cart:         store,
		Credentials:  creds,
		Observer:     observer,
		Engine:       engine,
		Scheduler:    scheduler,
		onReconciled: opts.OnReconciled,
		log:          log.With().Str("component", "session").Logger(),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}, nil
}

// Start hydrates the cart, arms the scheduler and begins observing auth.
// Auth transitions are handed to the reconciliation engine in order on a
// single worker goroutine, so a blocking conflict prompt never stalls the
// observer. Debounce and heartbeat pushes are held from every transition
// until the worker has handled the latest one as a login.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.Cart.Load(ctx)
	s.Scheduler.Start(ctx)
	go s.runWorker(ctx)

	unsub := s.Observer.Subscribe(s.enqueue)
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()

	if err := s.Observer.Start(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

// Authenticated reports the observer's current value.
func (s *Session) Authenticated() bool {
	return s.Observer.Authenticated()
}

// Login stores a freshly issued credential.
func (s *Session) Login(ctx context.Context, token string) error {
	return s.Credentials.Save(ctx, token)
}

// Logout drops the credential. The local cart is kept.
func (s *Session) Logout(ctx context.Context) {
	s.Credentials.Invalidate(ctx)
}

// Close releases every timer, listener and goroutine. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	cancel, unsub := s.cancel, s.unsub
	s.mu.Unlock()

	s.Observer.Close()
	if unsub != nil {
		unsub()
	}
	s.Scheduler.Close()
	if cancel != nil {
		cancel()
	}
	if started {
		<-s.done
	}
}

// enqueue runs on the observer's delivery path and never blocks.
func (s *Session) enqueue(authenticated bool) {
	s.mu.Lock()
	s.epoch++
	s.Scheduler.Pause()
	s.queue = append(s.queue, authEvent{authenticated: authenticated, epoch: s.epoch})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) next() (authEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return authEvent{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// settle resumes automatic pushes if ev is still the latest transition and
// it was a login. A newer transition keeps them held for its own pass.
func (s *Session) settle(ev authEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.authenticated && ev.epoch == s.epoch {
		s.Scheduler.Resume()
	}
}

func (s *Session) runWorker(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		for {
			ev, ok := s.next()
			if !ok {
				break
			}
			res, ran := s.Engine.HandleAuthChange(ctx, ev.authenticated)
			if ctx.Err() != nil {
				return
			}
			s.settle(ev)
			if !ran {
				continue
			}
			if res.Err != nil {
				s.log.Debug().Err(res.Err).Str("outcome", res.Outcome.String()).Msg("reconciliation finished with error")
			}
			if s.onReconciled != nil {
				s.onReconciled(res)
			}
		}
	}
}
