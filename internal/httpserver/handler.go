package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/app"
)

type Handler struct {
	App *app.App
}

// fail logs err under event and converts it for the error handler.
func fail(l *slog.Logger, event string, err error) error {
	he := httpError(err)
	if he.Code >= http.StatusInternalServerError {
		l.Error(event, "status", he.Code, "error", err)
	} else {
		l.Warn(event, "status", he.Code, "error", err)
	}
	return he
}

func idParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func badBody(err error) error {
	return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
}
