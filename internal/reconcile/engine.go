package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/cart"
	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/metrics"
)

// LocalCart is the subset of the Cart Store the engine mutates through.
type LocalCart interface {
	Snapshot() domain.CartSnapshot
	Add(ctx context.Context, in cart.AddLineInput)
	Clear(ctx context.Context)
}

// Pusher uploads the current local cart.
type Pusher interface {
	PushNow(ctx context.Context) error
}

// Invalidator drops the stored credential after an authorization failure.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Conflict is what the user is shown when both carts hold diverging lines.
type Conflict struct {
	Local  domain.CartSnapshot
	Server domain.ServerCart
	Diff   LineDiff
}

// Prompter asks the user to resolve a conflict. It blocks until the user
// answers; an error means the prompt was dismissed and nothing is changed.
type Prompter interface {
	Choose(ctx context.Context, c Conflict) (Choice, error)
}

// Result reports what a reconciliation pass did.
type Result struct {
	Outcome Outcome
	Choice  Choice // set only for OutcomeConflict
	Err     error
}

// Engine runs one reconciliation per unauthenticated→authenticated transition.
type Engine struct {
	cart      LocalCart
	api       ports.CartAPI
	pusher    Pusher
	prompter  Prompter
	creds     Invalidator
	tolerance decimal.Decimal
	log       zerolog.Logger

	mu            sync.Mutex
	authenticated bool
}

// Config carries the engine's collaborators.
type Config struct {
	Cart      LocalCart
	API       ports.CartAPI
	Pusher    Pusher
	Prompter  Prompter
	Creds     Invalidator
	Tolerance decimal.Decimal // zero selects DefaultTolerance
}

// NewEngine returns an Engine that starts in the unauthenticated state.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	tolerance := cfg.Tolerance
	if tolerance.IsZero() {
		tolerance = DefaultTolerance
	}
	return &Engine{
		cart:      cfg.Cart,
		api:       cfg.API,
		pusher:    cfg.Pusher,
		prompter:  cfg.Prompter,
		creds:     cfg.Creds,
		tolerance: tolerance,
		log:       log.With().Str("component", "reconcile").Logger(),
	}
}

// HandleAuthChange records the new auth state and reconciles when it is a
// transition into the authenticated state. ran reports whether a pass ran.
func (e *Engine) HandleAuthChange(ctx context.Context, authenticated bool) (res Result, ran bool) {
	e.mu.Lock()
	was := e.authenticated
	e.authenticated = authenticated
	e.mu.Unlock()

	if !authenticated || was {
		return Result{}, false
	}
	return e.Reconcile(ctx), true
}

// Reconcile performs one pass regardless of auth history.
func (e *Engine) Reconcile(ctx context.Context) Result {
	server, err := e.api.FetchCart(ctx)
	if errors.Is(err, domain.ErrUnauthorized) {
		e.log.Warn().Msg("server rejected credential during reconciliation")
		e.creds.Invalidate(ctx)
		metrics.ReconciliationsTotal.WithLabelValues("unauthorized").Inc()
		return Result{Outcome: OutcomeNoConflict, Err: err}
	}
	if err != nil {
		e.log.Warn().Err(err).Msg("could not fetch server cart, treating it as empty")
		server = domain.EmptyServerCart()
	}
	if server == nil {
		server = domain.EmptyServerCart()
	}

	local := e.cart.Snapshot()
	outcome := Decide(local, server, e.tolerance)
	res := Result{Outcome: outcome}

	switch outcome {
	case OutcomePushLocal:
		res.Err = e.push(ctx)
	case OutcomeAdoptServer:
		e.adopt(ctx, server.Lines)
	case OutcomeConflict:
		res.Choice, res.Err = e.resolve(ctx, local, server)
	}

	label := outcome.String()
	if outcome == OutcomeConflict {
		switch res.Choice {
		case ChoiceAdoptServer:
			label = "conflict_restore"
		case ChoiceKeepLocal:
			label = "conflict_keep"
		default:
			label = "conflict_dismissed"
		}
	}
	metrics.ReconciliationsTotal.WithLabelValues(label).Inc()

	e.log.Info().
		Str("outcome", label).
		Str("local_total", local.TotalAmount.StringFixed(2)).
		Str("server_total", server.TotalAmount.StringFixed(2)).
		Msg("cart reconciled")
	return res
}

func (e *Engine) resolve(ctx context.Context, local domain.CartSnapshot, server *domain.ServerCart) (Choice, error) {
	if e.prompter == nil {
		e.log.Warn().Msg("cart conflict with no prompter, leaving both carts untouched")
		return 0, nil
	}

	choice, err := e.prompter.Choose(ctx, Conflict{
		Local:  local,
		Server: *server,
		Diff:   DiffLines(local.Lines, server.Lines),
	})
	if err != nil {
		e.log.Info().Err(err).Msg("cart conflict prompt dismissed")
		return 0, nil
	}

	switch choice {
	case ChoiceAdoptServer:
		e.cart.Clear(ctx)
		e.adopt(ctx, server.Lines)
		return choice, nil
	case ChoiceKeepLocal:
		return choice, e.push(ctx)
	default:
		return 0, nil
	}
}

func (e *Engine) adopt(ctx context.Context, lines []domain.CartLine) {
	for _, l := range lines {
		e.cart.Add(ctx, cart.AddLineInput{
			ProductID: l.ProductID,
			SizeID:    l.SizeID,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Metadata:  l.LineMetadata,
		})
	}
}

func (e *Engine) push(ctx context.Context) error {
	if err := e.pusher.PushNow(ctx); err != nil {
		e.log.Warn().Err(err).Msg("failed to push local cart after reconciliation")
		return err
	}
	return nil
}
