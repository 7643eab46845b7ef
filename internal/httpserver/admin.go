package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
)

func (h *Handler) CreateFood(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create.food")

	var in models.FoodInput
	if err := c.Bind(&in); err != nil {
		return badBody(err)
	}

	f, err := h.App.CreateFood(ctx, in)
	if err != nil {
		return fail(l, "create_food_error", err)
	}

	l.Info("food created", "food_id", f.ID)
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) UpdateFood(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update.food")

	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in models.FoodInput
	if err := c.Bind(&in); err != nil {
		return badBody(err)
	}

	f, err := h.App.UpdateFood(ctx, id, in)
	if err != nil {
		return fail(l, "update_food_error", err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFood(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete.food")

	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.App.DeleteFood(ctx, id); err != nil {
		return fail(l, "delete_food_error", err)
	}

	l.Info("food deleted", "food_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update.order")

	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}

	o, err := h.App.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		return fail(l, "update_order_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete.order")

	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.App.DeleteOrder(ctx, id); err != nil {
		return fail(l, "delete_order_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Users(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list.users")

	users, err := h.App.Users(ctx)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create.user")

	var u models.NewUser
	if err := c.Bind(&u); err != nil {
		return badBody(err)
	}
	if err := h.App.CreateUser(ctx, u); err != nil {
		return fail(l, "create_user_error", err)
	}

	l.Info("user created", "username", u.Username)
	return c.NoContent(http.StatusCreated)
}
