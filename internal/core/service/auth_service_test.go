package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/cartsync/internal/core/domain"
)

type stubAuthRepo struct {
	users map[string]*domain.User
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = "id-" + user.Username
	}
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

type stubRevoker struct {
	revoked map[string]time.Time
	err     error
}

func newStubRevoker() *stubRevoker {
	return &stubRevoker{revoked: make(map[string]time.Time)}
}

func (r *stubRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	r.revoked[jti] = until
	return nil
}

func (r *stubRevoker) IsRevoked(_ context.Context, jti string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.revoked[jti]
	return ok, nil
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := NewAuthService(repo, nil, "secret", time.Hour)

	user, err := svc.Register(context.Background(), "alice", "pass123", "Alice@Example.com")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user == nil {
		t.Fatalf("expected user, got nil")
	}
	if user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleCustomer {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %s", user.Email)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), "", "pass", "x@example.com"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "pass", "  "); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for blank email, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), "bob", "pass", "bob@example.com")
	if _, err := svc.Register(context.Background(), "bob", "pass2", "bob@example.com"); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	if _, err := svc.Register(context.Background(), "carol", "s3cret", "carol@example.com"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.Username != "carol" {
		t.Fatalf("unexpected user: %+v", user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != "id-carol" {
		t.Fatalf("expected sub id-carol, got %v", claims["sub"])
	}
	if jti, _ := claims["jti"].(string); jti == "" {
		t.Fatalf("expected a token id")
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	_, _ = svc.Register(context.Background(), "dave", "goodpass", "dave@example.com")
	if _, _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "pass"); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_VerifyAndLogout(t *testing.T) {
	ctx := context.Background()
	revoker := newStubRevoker()
	svc := NewAuthService(newStubAuthRepo(), revoker, "secret", time.Hour)
	_, _ = svc.Register(ctx, "erin", "pw", "erin@example.com")
	token, _, err := svc.Login(ctx, "erin@example.com", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "id-erin" || claims.Username != "erin" || claims.TokenID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if err := svc.Logout(ctx, *claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if until := revoker.revoked[claims.TokenID]; !until.Equal(claims.ExpiresAt) {
		t.Fatalf("expected revocation until %v, got %v", claims.ExpiresAt, until)
	}
	if _, err := svc.Verify(ctx, token); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestAuthService_Verify_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(newStubAuthRepo(), nil, "secret", time.Hour)

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("other"))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte("secret"))
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
	}).SignedString([]byte("secret"))

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"garbage":    "not-a-jwt",
	} {
		if _, err := svc.Verify(ctx, token); err != domain.ErrUnauthorized {
			t.Fatalf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestAuthService_Verify_RevocationStoreDown(t *testing.T) {
	ctx := context.Background()
	revoker := newStubRevoker()
	svc := NewAuthService(newStubAuthRepo(), revoker, "secret", time.Hour)
	_, _ = svc.Register(ctx, "finn", "pw", "finn@example.com")
	token, _, _ := svc.Login(ctx, "finn@example.com", "pw")

	revoker.err = errors.New("redis down")
	if _, err := svc.Verify(ctx, token); err == nil || err == domain.ErrUnauthorized {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}
