// Package cart holds the client-side Cart Store: the authoritative local cart,
// its write-through persistence and its change feed.
package cart

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

// AddLineInput carries everything needed to add a line. UnitPrice and
// Metadata are snapshotted into the line on first add.
type AddLineInput struct {
	ProductID int64
	SizeID    int64 // domain.NoSize for products without variants
	UnitPrice decimal.Decimal
	Quantity  int
	Metadata  domain.LineMetadata
}

// Store is the only writer of the local cart. All methods are safe for
// concurrent use; mutations are applied and persisted in call order.
type Store struct {
	storage ports.Storage
	log     zerolog.Logger

	mu    sync.Mutex
	lines []domain.CartLine

	subMu  sync.Mutex
	subs   map[int]func(domain.CartSnapshot)
	nextID int
}

// NewStore returns an empty Store persisting to storage. Call Load to hydrate
// it from a previous session.
func NewStore(storage ports.Storage, log zerolog.Logger) *Store {
	return &Store{
		storage: storage,
		log:     log.With().Str("component", "cart_store").Logger(),
		subs:    make(map[int]func(domain.CartSnapshot)),
	}
}

// Load replaces the in-memory cart with the persisted one. A missing,
// corrupted or differently-versioned record yields an empty cart.
func (s *Store) Load(ctx context.Context) domain.CartSnapshot {
	lines := s.read(ctx)

	s.mu.Lock()
	s.lines = lines
	snap := domain.NewCartSnapshot(s.lines)
	s.mu.Unlock()

	s.log.Debug().Int("lines", len(snap.Lines)).Msg("cart hydrated")
	return snap
}

func (s *Store) read(ctx context.Context) []domain.CartLine {
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to read persisted cart, starting empty")
		return nil
	}
	if !ok {
		return nil
	}
	lines, err := decode(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable persisted cart")
		return nil
	}
	return lines
}

// Add increments the line with the same key or appends a new one.
// A quantity <= 0 is ignored.
func (s *Store) Add(ctx context.Context, in AddLineInput) {
	if in.Quantity <= 0 {
		return
	}
	key := domain.LineKey{ProductID: in.ProductID, SizeID: in.SizeID}

	s.mutate(ctx, func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		if i := indexOf(lines, key); i >= 0 {
			lines[i].Quantity += in.Quantity
			return lines, true
		}
		return append(lines, domain.CartLine{
			ProductID:    in.ProductID,
			SizeID:       in.SizeID,
			UnitPrice:    in.UnitPrice,
			Quantity:     in.Quantity,
			LineMetadata: in.Metadata,
		}), true
	})
}

// Remove deletes the line with the given key. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, key domain.LineKey) {
	s.mutate(ctx, func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		i := indexOf(lines, key)
		if i < 0 {
			return lines, false
		}
		return append(lines[:i], lines[i+1:]...), true
	})
}

// UpdateQuantity sets the quantity of an existing line; qty <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, key domain.LineKey, qty int) {
	if qty <= 0 {
		s.Remove(ctx, key)
		return
	}
	s.mutate(ctx, func(lines []domain.CartLine) ([]domain.CartLine, bool) {
		i := indexOf(lines, key)
		if i < 0 || lines[i].Quantity == qty {
			return lines, false
		}
		lines[i].Quantity = qty
		return lines, true
	})
}

// Clear empties the cart and overwrites the persisted record.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func([]domain.CartLine) ([]domain.CartLine, bool) {
		return nil, true
	})
}

// Snapshot returns a copy of the cart with freshly computed totals.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewCartSnapshot(s.lines)
}

// Subscribe registers fn to receive the cart after every effective mutation.
// fn runs on the mutating goroutine, after persistence, outside the store lock.
func (s *Store) Subscribe(fn func(domain.CartSnapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) mutate(ctx context.Context, fn func([]domain.CartLine) ([]domain.CartLine, bool)) {
	s.mu.Lock()
	next, changed := fn(s.lines)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.lines = next
	snap := domain.NewCartSnapshot(s.lines)
	s.persist(ctx, snap.Lines)
	s.mu.Unlock()

	s.publish(snap)
}

// persist runs under s.mu so records land in mutation order.
func (s *Store) persist(ctx context.Context, lines []domain.CartLine) {
	raw, err := encode(lines)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode cart")
		return
	}
	if err := s.storage.Set(ctx, StorageKey, raw); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist cart")
	}
}

func (s *Store) publish(snap domain.CartSnapshot) {
	s.subMu.Lock()
	fns := make([]func(domain.CartSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func indexOf(lines []domain.CartLine, key domain.LineKey) int {
	for i, l := range lines {
		if l.Key() == key {
			return i
		}
	}
	return -1
}
