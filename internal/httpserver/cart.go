package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mokosho/shop/internal/logging"
	"github.com/mokosho/shop/internal/service"
)

type CartHTTP struct {
	Svc *service.CartService
}

func getUserID(c echo.Context) (uuid.UUID, error) {
	v := c.Get("user_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return uuid.Nil, errors.New("unauthorized")
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New("unauthorized")
	}

	return userID, nil
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("get_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	items, products, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal server error")
	}

	out := cartResponse{Items: make([]cartItemDTO, 0, len(items))}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			// Product removed from the catalog after it was carted.
			continue
		}
		out.Items = append(out.Items, cartItemDTO{
			Quantity: int(it.Quantity),
			Product:  toProductDTO(p),
		})
	}

	return c.JSON(http.StatusOK, dataResponse{Data: out})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("add_to_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req addCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil || req.Quantity <= 0 {
		l.Warn("add_to_cart_error", "status", 400)
		return c.JSON(http.StatusBadRequest, "quantity>0 and productId required")
	}

	item, product, err := h.Svc.AddToCart(ctx, userID, productID, uint(req.Quantity))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, "product not found")
		default:
			l.Error("add_to_cart_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	l.Info("item added successfully to cart", "product", productID)
	return c.JSON(http.StatusCreated, dataResponse{Data: cartItemDTO{
		Quantity: int(item.Quantity),
		Product:  toProductDTO(*product),
	}})
}

func (h *CartHTTP) PatchCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "patch.cart")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("patch_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	var req patchCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, "quantity>0 required")
	}

	item, product, err := h.Svc.SetQuantity(ctx, userID, productID, uint(req.Quantity))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, "cart item not found")
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, err.Error())
		default:
			l.Error("patch_cart_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, dataResponse{Data: cartItemDTO{
		Quantity: int(item.Quantity),
		Product:  toProductDTO(*product),
	}})
}

func (h *CartHTTP) DeleteCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.cart.item")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("delete_cart_item_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	if err := h.Svc.RemoveFromCart(ctx, userID, productID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, "cart item not found")
		default:
			l.Error("delete_cart_item_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "clear.cart")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("clear_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.Svc.ClearCart(ctx, userID); err != nil {
		l.Error("clear_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("cart successfully cleared")
	return c.NoContent(http.StatusNoContent)
}
