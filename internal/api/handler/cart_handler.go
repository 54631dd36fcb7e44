package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storefront/cartsync/internal/core/ports"
	"github.com/storefront/cartsync/internal/metrics"
)

type CartHandler struct {
	carts ports.CartService
}

func NewCartHandler(carts ports.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Get handles GET /users/me/cart. 404 when the user never pushed a cart.
func (h *CartHandler) Get(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	cart, err := h.carts.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(cart))
}

// Replace handles POST /users/me/cart, overwriting the whole cart.
func (h *CartHandler) Replace(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req replaceCartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cart, err := h.carts.Replace(c.Request().Context(), claims.UserID, req.toStored())
	if err != nil {
		return err
	}
	metrics.CartWritesTotal.Inc()
	return c.JSON(http.StatusOK, toCartResponse(cart))
}

type ProductHandler struct {
	catalog ports.CartService
}

func NewProductHandler(catalog ports.CartService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	p, err := h.catalog.Product(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Put handles PUT /products/:id, creating or replacing a catalog entry.
func (h *ProductHandler) Put(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p := req.toDomain(id)
	if err := h.catalog.SaveProduct(c.Request().Context(), p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	return id, nil
}
