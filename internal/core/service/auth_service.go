package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

// AuthService implements registration, login, logout and token verification.
type AuthService struct {
	repo      ports.AuthRepository
	revoker   ports.TokenRevoker
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService wires the service. revoker may be nil, in which case logout
// is a no-op on the server and tokens stay valid until they expire.
func NewAuthService(repo ports.AuthRepository, revoker ports.TokenRevoker, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, revoker: revoker, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || password == "" || email == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.repo.Create(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Logout revokes the token identified by claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims ports.TokenClaims) error {
	if s.revoker == nil || claims.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt)
}

// Verify checks signature, expiry and revocation. Any failure is
// domain.ErrUnauthorized except a revocation store outage, which is returned
// as is.
func (s *AuthService) Verify(ctx context.Context, token string) (*ports.TokenClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}

	out := &ports.TokenClaims{}
	out.UserID, _ = claims.GetSubject()
	out.Username, _ = claims["username"].(string)
	out.Role, _ = claims["role"].(string)
	out.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if out.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	if s.revoker != nil && out.TokenID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, out.TokenID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domain.ErrUnauthorized
		}
	}
	return out, nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	if user.ID == "" {
		return "", errors.New("user has no id")
	}
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"jti":      uuid.NewString(),
		"exp":      s.now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
