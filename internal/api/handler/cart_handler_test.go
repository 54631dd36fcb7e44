package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/storefront/cartsync/internal/api/handler"
	"github.com/storefront/cartsync/internal/api/middleware"
	"github.com/storefront/cartsync/internal/core/domain"
	"github.com/storefront/cartsync/internal/core/ports"
)

type stubCartService struct {
	getFn     func(ctx context.Context, userID string) (*domain.ServerCart, error)
	replaceFn func(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error)
	productFn func(ctx context.Context, id int64) (*domain.Product, error)
	saved     *domain.Product
}

func (s *stubCartService) Get(ctx context.Context, userID string) (*domain.ServerCart, error) {
	return s.getFn(ctx, userID)
}

func (s *stubCartService) Replace(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error) {
	return s.replaceFn(ctx, userID, items)
}

func (s *stubCartService) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productFn(ctx, id)
}

func (s *stubCartService) SaveProduct(_ context.Context, p *domain.Product) error {
	s.saved = p
	return nil
}

func asUser(id string) func(echo.Context) {
	return func(c echo.Context) {
		c.Set(middleware.KeyClaims, ports.TokenClaims{UserID: id})
	}
}

func TestCartHandler_Get(t *testing.T) {
	lines := []domain.CartLine{{
		ProductID:    2,
		SizeID:       11,
		UnitPrice:    decimal.RequireFromString("280.50"),
		Quantity:     2,
		LineMetadata: domain.LineMetadata{Name: "Pizza", Slug: "pizza", SizeName: "L"},
	}}
	stub := &stubCartService{
		getFn: func(ctx context.Context, userID string) (*domain.ServerCart, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %s", userID)
			}
			items, amount := domain.Totals(lines)
			return &domain.ServerCart{Lines: lines, TotalItems: items, TotalAmount: amount}, nil
		},
	}
	h := handler.NewCartHandler(stub)

	rec := serve(newEcho(), h.Get, http.MethodGet, "/users/me/cart", "", asUser("u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Items []struct {
			ProductID    int64           `json:"product_id"`
			SizeID       *int64          `json:"size_id"`
			Price        decimal.Decimal `json:"price"`
			Subtotal     decimal.Decimal `json:"subtotal"`
			ProductName  string          `json:"product_name"`
			ProductSlug  string          `json:"product_slug"`
			ProductImage *string         `json:"product_image"`
			SizeName     *string         `json:"size_name"`
		} `json:"items"`
		TotalAmount decimal.Decimal `json:"total_amount"`
		TotalItems  int             `json:"total_items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].SizeID == nil || *resp.Items[0].SizeID != 11 {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if !resp.TotalAmount.Equal(decimal.RequireFromString("561")) || resp.TotalItems != 2 {
		t.Fatalf("unexpected totals: %s / %d", resp.TotalAmount, resp.TotalItems)
	}
	it := resp.Items[0]
	if !it.Price.Equal(decimal.RequireFromString("280.50")) || it.ProductName != "Pizza" || it.ProductSlug != "pizza" {
		t.Fatalf("unexpected line: %+v", it)
	}
	if it.ProductImage != nil {
		t.Errorf("expected null product_image, got %q", *it.ProductImage)
	}
	if it.SizeName == nil || *it.SizeName != "L" {
		t.Errorf("expected size_name L, got %v", it.SizeName)
	}
}

func TestCartHandler_Get_NotFound(t *testing.T) {
	stub := &stubCartService{
		getFn: func(ctx context.Context, userID string) (*domain.ServerCart, error) {
			return nil, domain.ErrCartNotFound
		},
	}
	rec := serve(newEcho(), handler.NewCartHandler(stub).Get, http.MethodGet, "/users/me/cart", "", asUser("u1"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCartHandler_Replace(t *testing.T) {
	var got []ports.StoredCartItem
	stub := &stubCartService{
		replaceFn: func(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error) {
			got = items
			return domain.EmptyServerCart(), nil
		},
	}
	h := handler.NewCartHandler(stub)

	rec := serve(newEcho(), h.Replace, http.MethodPost, "/users/me/cart",
		`{"items":[{"product_id":1,"size_id":null,"quantity":2},{"product_id":2,"size_id":11,"quantity":1}]}`, asUser("u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got) != 2 || got[0].SizeID != domain.NoSize || got[1].SizeID != 11 {
		t.Fatalf("unexpected items forwarded: %+v", got)
	}
}

func TestCartHandler_Replace_Rejects(t *testing.T) {
	stub := &stubCartService{
		replaceFn: func(ctx context.Context, userID string, items []ports.StoredCartItem) (*domain.ServerCart, error) {
			if items[0].ProductID == 99 {
				return nil, domain.ErrProductNotFound
			}
			return nil, errors.New("unexpected")
		},
	}
	h := handler.NewCartHandler(stub)

	cases := []struct {
		body string
		want int
	}{
		{`{"items":[{"product_id":1,"quantity":0}]}`, http.StatusBadRequest},
		{`{"items":[{"product_id":-1,"quantity":1}]}`, http.StatusBadRequest},
		{`{"items":[{"product_id":99,"quantity":1}]}`, http.StatusUnprocessableEntity},
		{`not-json`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := serve(newEcho(), h.Replace, http.MethodPost, "/users/me/cart", tc.body, asUser("u1"))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.body, tc.want, rec.Code)
		}
	}
}

func TestCartHandler_RequiresClaims(t *testing.T) {
	h := handler.NewCartHandler(&stubCartService{})
	rec := serve(newEcho(), h.Get, http.MethodGet, "/users/me/cart", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProductHandler_Get(t *testing.T) {
	stub := &stubCartService{
		productFn: func(ctx context.Context, id int64) (*domain.Product, error) {
			if id != 5 {
				return nil, domain.ErrProductNotFound
			}
			return &domain.Product{ID: 5, Name: "Varenyky", Price: decimal.NewFromInt(95)}, nil
		},
	}
	h := handler.NewProductHandler(stub)
	e := newEcho()

	get := func(id string) int {
		rec := serve(e, h.Get, http.MethodGet, "/products/"+id, "", func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues(id)
		})
		return rec.Code
	}
	if code := get("5"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := get("6"); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := get("abc"); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestProductHandler_Put(t *testing.T) {
	stub := &stubCartService{}
	h := handler.NewProductHandler(stub)

	rec := serve(newEcho(), h.Put, http.MethodPut, "/products/7",
		`{"name":"Pizza","slug":"pizza","price":"200","sizes":[{"id":1,"name":"L","price":"280.50"}]}`,
		func(c echo.Context) {
			c.SetParamNames("id")
			c.SetParamValues("7")
		})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.saved == nil || stub.saved.ID != 7 || len(stub.saved.Sizes) != 1 {
		t.Fatalf("unexpected saved product: %+v", stub.saved)
	}
	if !stub.saved.Sizes[0].Price.Equal(decimal.RequireFromString("280.50")) {
		t.Fatalf("size price lost: %s", stub.saved.Sizes[0].Price)
	}
}
