// Package auth produces the client's single "authenticated" signal and owns
// the stored credential it is derived from.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/storefront/cartsync/internal/core/ports"
)

// TokenKey is the durable-storage key holding the bearer credential.
const TokenKey = "auth_token"

// Credentials is the only writer of TokenKey.
type Credentials struct {
	storage ports.Storage
	signal  *Signal
	now     func() time.Time
	log     zerolog.Logger
}

// NewCredentials returns a Credentials over storage. Every write broadcasts on
// signal so same-instance observers update immediately.
func NewCredentials(storage ports.Storage, signal *Signal, now func() time.Time, log zerolog.Logger) *Credentials {
	if now == nil {
		now = time.Now
	}
	return &Credentials{
		storage: storage,
		signal:  signal,
		now:     now,
		log:     log.With().Str("component", "credentials").Logger(),
	}
}

// Token returns the stored credential. ok is false when none is stored or the
// stored token is a JWT whose exp has passed.
func (c *Credentials) Token(ctx context.Context) (string, bool) {
	token, found, err := c.storage.Get(ctx, TokenKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read credential")
		return "", false
	}
	if !found || token == "" {
		return "", false
	}
	if c.expired(token) {
		return "", false
	}
	return token, true
}

// Present reports whether a usable credential is stored.
func (c *Credentials) Present(ctx context.Context) bool {
	_, ok := c.Token(ctx)
	return ok
}

// Save stores token and announces the change.
func (c *Credentials) Save(ctx context.Context, token string) error {
	if err := c.storage.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	c.signal.Broadcast()
	return nil
}

// Invalidate removes the credential and announces the change. It is how an
// authorization failure becomes a logged-out state.
func (c *Credentials) Invalidate(ctx context.Context) {
	if err := c.storage.Delete(ctx, TokenKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to delete credential")
	}
	c.log.Info().Msg("credential invalidated")
	c.signal.Broadcast()
}

// expired inspects the token without verifying its signature; the client
// cannot verify and only needs exp to avoid pushing with a dead token.
// Tokens that are not JWTs never expire here.
func (c *Credentials) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !c.now().Before(exp.Time)
}
