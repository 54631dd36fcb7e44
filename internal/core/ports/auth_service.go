package ports

import (
	"context"
	"time"

	"github.com/storefront/cartsync/internal/core/domain"
)

// TokenClaims are the verified contents of an access token.
type TokenClaims struct {
	UserID    string
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Logout(ctx context.Context, claims TokenClaims) error
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}
