package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/logging"
)

func (h *Handler) CheckoutStatus(c echo.Context) error {
	v := h.cartView()
	return c.JSON(http.StatusOK, map[string]any{
		"canCheckout": h.App.CanCheckout(),
		"itemCount":   v.ItemCount,
		"total":       v.Total,
	})
}

func (h *Handler) PlaceOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "place.order")

	var req struct {
		CustomerName string `json:"customerName"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}

	id, err := h.App.PlaceOrder(ctx, req.CustomerName)
	if err != nil {
		return fail(l, "place_order_error", err)
	}

	l.Info("order placed", "order_id", id)
	return c.JSON(http.StatusCreated, map[string]string{"orderId": id})
}

func (h *Handler) Orders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "list.orders")

	orders, err := h.App.Orders(ctx)
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, orders)
}
