// Package cartapi is a typed HTTP client for the remote cart API.
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// APIError is returned when the API responds with an unexpected non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cart api %d: %s", e.Status, e.Message)
}

// TokenSource supplies the bearer credential. ok is false when logged out.
type TokenSource interface {
	Token(ctx context.Context) (token string, ok bool)
}

// Client talks to the cart API on behalf of one user.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

var (
	_ ports.CartAPI    = (*Client)(nil)
	_ ports.CatalogAPI = (*Client)(nil)
)

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. tokens may be nil for anonymous use (catalog, login).
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchCart calls GET /users/me/cart. A 404 is an empty cart.
func (c *Client) FetchCart(ctx context.Context) (*domain.ServerCart, error) {
	var out cartResponse
	err := c.do(ctx, http.MethodGet, "/users/me/cart", true, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return domain.EmptyServerCart(), nil
	}
	if err != nil {
		return nil, err
	}
	return out.toServerCart(), nil
}

// PushCart calls POST /users/me/cart, replacing the account's cart.
func (c *Client) PushCart(ctx context.Context, lines []domain.CartLine) error {
	return c.do(ctx, http.MethodPost, "/users/me/cart", true, toPushRequest(lines), nil)
}

// Product calls GET /products/{id}.
func (c *Client) Product(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), false, nil, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login calls POST /auth/login and returns the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", false, loginRequest{Email: email, Password: password}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return "", nil, domain.ErrUserNotFound
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

// Logout calls POST /auth/logout so the server revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", true, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, authed bool, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if c.tokens == nil {
			return domain.ErrUnauthorized
		}
		token, ok := c.tokens.Token(ctx)
		if !ok {
			return domain.ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		msg := http.StatusText(resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
