package cartapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/core/domain"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) { return string(s), s != "" }

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCart_DecodesLines(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/cart", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"items":[
				{"product_id":7,"size_id":null,"quantity":3,"price":"120.00","product_name":"Borscht","product_slug":"borscht","product_image":null,"size_name":null},
				{"product_id":9,"size_id":2,"quantity":1,"price":"250.50","product_name":"Pizza","product_slug":"pizza","product_image":"/img/pizza.png","size_name":"L"},
				{"product_id":0,"quantity":1,"price":"1"}
			],
			"total_amount":"610.50","total_items":4}`))
	})

	cart, err := New(srv.URL, staticToken("tok")).FetchCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2, "invalid lines are dropped")
	assert.Equal(t, domain.LineKey{ProductID: 7}, cart.Lines[0].Key())
	assert.Equal(t, domain.LineKey{ProductID: 9, SizeID: 2}, cart.Lines[1].Key())
	assert.Equal(t, "L", cart.Lines[1].SizeName)
	assert.Equal(t, "/img/pizza.png", cart.Lines[1].Image)
	assert.True(t, decimal.RequireFromString("250.50").Equal(cart.Lines[1].UnitPrice))
	assert.True(t, decimal.RequireFromString("610.50").Equal(cart.TotalAmount))
}

func TestFetchCart_NumericPricesAndNullMetadata(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"items":[{"product_id":7,"size_id":null,"quantity":3,"price":120,
				"product_name":"Borscht","product_slug":"borscht","product_image":null,"size_name":null}],
			"total_amount":360,"total_items":3}`))
	})

	cart, err := New(srv.URL, staticToken("tok")).FetchCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)

	line := cart.Lines[0]
	assert.True(t, decimal.NewFromInt(120).Equal(line.UnitPrice), "got %s", line.UnitPrice)
	assert.Equal(t, "Borscht", line.Name)
	assert.Equal(t, "borscht", line.Slug)
	assert.Empty(t, line.Image)
	assert.Empty(t, line.SizeName)
	assert.True(t, decimal.NewFromInt(360).Equal(line.Subtotal()))
	assert.True(t, decimal.NewFromInt(360).Equal(cart.TotalAmount))
	assert.Equal(t, 3, cart.TotalItems)
}

func TestFetchCart_NotFoundIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"cart not found"}`))
	})

	cart, err := New(srv.URL, staticToken("tok")).FetchCart(context.Background())
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestFetchCart_Unauthorized(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := New(srv.URL, staticToken("tok")).FetchCart(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPushCart_NoTokenSendsNothing(t *testing.T) {
	called := false
	srv := newServer(t, func(http.ResponseWriter, *http.Request) { called = true })

	err := New(srv.URL, staticToken("")).PushCart(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, called)
}

func TestPushCart_SendsItems(t *testing.T) {
	var got map[string][]map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := New(srv.URL, staticToken("tok")).PushCart(context.Background(), []domain.CartLine{
		{ProductID: 1, UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		{ProductID: 3, SizeID: 4, UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, got["items"], 2)
	assert.Nil(t, got["items"][0]["size_id"])
	assert.EqualValues(t, 2, got["items"][0]["quantity"])
	assert.EqualValues(t, 4, got["items"][1]["size_id"])
	assert.NotContains(t, got["items"][0], "unit_price", "prices are the server's business")
}

func TestPushCart_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := New(srv.URL, staticToken("tok")).PushCart(context.Background(), nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProduct(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/5" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":5,"name":"Varenyky","slug":"varenyky","price":"95.00","sizes":[{"id":1,"name":"S","price":"80"}]}`))
	})
	c := New(srv.URL, nil)

	p, err := c.Product(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Varenyky", p.Name)
	price, name, ok := p.PriceFor(1)
	assert.True(t, ok)
	assert.Equal(t, "S", name)
	assert.True(t, decimal.NewFromInt(80).Equal(price))

	_, err = c.Product(context.Background(), 6)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestLogin(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"jwt","user":{"id":"u1","username":"ann","email":"ann@example.com"}}`))
	})
	c := New(srv.URL, nil)

	token, user, err := c.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
	assert.Equal(t, "ann", user.Username)

	_, _, err = c.Login(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
