package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/apiclient"
	"github.com/Skotchmaster/food_client/internal/app"
	"github.com/Skotchmaster/food_client/internal/cart"
	"github.com/Skotchmaster/food_client/internal/catalog"
	"github.com/Skotchmaster/food_client/internal/checkout"
	"github.com/Skotchmaster/food_client/internal/session"
	"github.com/Skotchmaster/food_client/internal/validation"
)

// httpError converts a domain error into the response the local API returns.
// Backend statuses pass through, except backend failures which become 502.
func httpError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var delErr *app.DeleteFoodError
	if errors.As(err, &delErr) {
		status := http.StatusBadGateway
		if delErr.InUse {
			status = http.StatusConflict
		}
		return echo.NewHTTPError(status, delErr.Message).SetInternal(err)
	}

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status >= 500 {
			status = http.StatusBadGateway
		}
		return echo.NewHTTPError(status, apiErr.Message).SetInternal(err)
	}

	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, validation.ErrValidation),
		errors.Is(err, cart.ErrValidation),
		errors.Is(err, session.ErrValidation),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrUnknownFood):
		return http.StatusNotFound
	case errors.Is(err, apiclient.ErrUnavailable), errors.Is(err, catalog.ErrSearchUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
