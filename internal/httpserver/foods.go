package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/catalog"
	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
)

// ListFoods filters the cached menu by search, category and price query
// parameters.
func (h *Handler) ListFoods(c echo.Context) error {
	var crit catalog.Criteria
	if err := c.Bind(&crit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query").SetInternal(err)
	}
	return c.JSON(http.StatusOK, h.App.Menu(crit))
}

func (h *Handler) RefreshFoods(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "refresh.foods")

	foods, err := h.App.LoadMenu(ctx)
	if err != nil {
		return fail(l, "refresh_foods_error", err)
	}
	return c.JSON(http.StatusOK, foods)
}

func (h *Handler) Categories(c echo.Context) error {
	cats := h.App.Categories()
	if cats == nil {
		cats = []string{}
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *Handler) SearchFoods(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.foods")

	var req struct {
		Query string `query:"q"`
		Page  int    `query:"page"`
		Size  int    `query:"size"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query").SetInternal(err)
	}

	total, foods, err := h.App.SearchMenu(ctx, req.Query, req.Page, req.Size)
	if err != nil {
		return fail(l, "search_foods_error", err)
	}
	if foods == nil {
		foods = []models.Food{}
	}

	from, limit := catalog.Calculate(req.Page, req.Size)
	return c.JSON(http.StatusOK, map[string]any{
		"total": total,
		"page":  from/limit + 1,
		"size":  limit,
		"items": foods,
	})
}
