package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
)

type cartView struct {
	Key       string            `json:"key"`
	Lines     []models.CartLine `json:"lines"`
	ItemCount int               `json:"itemCount"`
	Total     float64           `json:"total"`
}

func (h *Handler) cartView() cartView {
	sum := h.App.Cart.Summary()
	return cartView{
		Key:       sum.Key,
		Lines:     sum.Lines,
		ItemCount: sum.ItemCount,
		Total:     sum.Total,
	}
}

func (h *Handler) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	var req struct {
		FoodID   int64 `json:"foodId"`
		Quantity *int  `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	if err := h.App.AddToCart(ctx, req.FoodID, qty); err != nil {
		return fail(l, "add_to_cart_error", err)
	}

	l.Info("item added to cart", "food_id", req.FoodID, "quantity", qty)
	return c.JSON(http.StatusCreated, h.cartView())
}

func (h *Handler) SetCartQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "set.cart.quantity")

	id, err := idParam(c, "foodId")
	if err != nil {
		return err
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}

	if err := h.App.SetCartQuantity(ctx, id, req.Quantity); err != nil {
		return fail(l, "set_cart_quantity_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.one.from.cart")

	id, err := idParam(c, "foodId")
	if err != nil {
		return err
	}
	if err := h.App.RemoveFromCart(ctx, id); err != nil {
		return fail(l, "delete_one_from_cart_error", err)
	}
	return c.JSON(http.StatusOK, h.cartView())
}

func (h *Handler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "delete.all.from.cart")

	if err := h.App.ClearCart(ctx); err != nil {
		return fail(l, "delete_all_from_cart_error", err)
	}

	l.Info("cart successfully cleared")
	return c.JSON(http.StatusOK, h.cartView())
}
