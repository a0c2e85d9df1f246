package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mokosho/shop/internal/logging"
	"github.com/mokosho/shop/internal/service"
)

type WishlistHTTP struct {
	Svc *service.WishlistService
}

func (h *WishlistHTTP) GetWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.wishlist")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("get_wishlist_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	items, products, err := h.Svc.GetWishlist(ctx, userID)
	if err != nil {
		l.Error("get_wishlist_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal server error")
	}

	out := make([]wishlistItemDTO, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		addedAt := it.AddedAt
		out = append(out, wishlistItemDTO{
			Product: toProductDTO(p),
			AddedAt: &addedAt,
		})
	}

	return c.JSON(http.StatusOK, dataResponse{Data: out})
}

func (h *WishlistHTTP) AddToWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.wishlist")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("add_to_wishlist_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req addWishlistRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_wishlist_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, "productId required")
	}

	item, product, err := h.Svc.AddToWishlist(ctx, userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrValidation):
			return c.JSON(http.StatusBadRequest, err.Error())
		default:
			l.Error("add_to_wishlist_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	addedAt := item.AddedAt
	return c.JSON(http.StatusCreated, dataResponse{Data: wishlistItemDTO{
		Product: toProductDTO(*product),
		AddedAt: &addedAt,
	}})
}

func (h *WishlistHTTP) DeleteWishlistItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.wishlist.item")

	userID, err := getUserID(c)
	if err != nil {
		l.Error("delete_wishlist_item_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	if err := h.Svc.RemoveFromWishlist(ctx, userID, productID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.JSON(http.StatusNotFound, "wishlist item not found")
		default:
			l.Error("delete_wishlist_item_error", "status", 500, "error", err)
			return c.JSON(http.StatusInternalServerError, "internal error")
		}
	}

	return c.NoContent(http.StatusNoContent)
}
