// Package httpserver exposes the client state as a local JSON API.
package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/food_client/internal/app"
	"github.com/Skotchmaster/food_client/internal/middleware/auth"
	"github.com/Skotchmaster/food_client/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/food_client/internal/middleware/logging"
)

const (
	csrfHeader    = "X-CSRF-Token"
	backendPrefix = "/backend"
)

type Deps struct {
	App    *app.App
	Logger *slog.Logger

	// Backend is the API base URL proxied under /backend. Nil disables the
	// proxy.
	Backend *url.URL

	DisableCSRF bool
}

func Register(e *echo.Echo, d *Deps) error {
	if d.App == nil {
		return errors.New("httpserver: App is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.Use(ecM.Recover())
	e.Use(ecM.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger))
	e.Use(ecM.Secure())
	if !d.DisableCSRF {
		cfg := csrf.DefaultConfig()
		cfg.HeaderName = csrfHeader
		cfg.SkipPaths = []string{"/health/live", "/health/ready"}
		e.Use(csrf.Middleware(cfg))
	}

	h := &Handler{App: d.App}
	guard := auth.NewGuard(d.App.Sessions)

	api := e.Group("/api")

	sess := api.Group("/session")
	sess.GET("", h.GetSession)
	sess.POST("/login", h.Login)
	sess.POST("/register", h.Register)
	sess.POST("/logout", h.Logout)
	sess.GET("/welcome", h.Welcome)

	cart := api.Group("/cart")
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/items", h.AddToCart)
	cart.PUT("/items/:foodId", h.SetCartQuantity)
	cart.DELETE("/items/:foodId", h.RemoveFromCart)

	api.GET("/checkout", h.CheckoutStatus)
	api.POST("/checkout", h.PlaceOrder)
	api.GET("/orders", h.Orders, guard.RequireAuth)

	foods := api.Group("/foods")
	foods.GET("", h.ListFoods)
	foods.POST("/refresh", h.RefreshFoods)
	foods.GET("/categories", h.Categories)
	foods.GET("/search", h.SearchFoods)

	admin := api.Group("/admin", guard.RequireAdmin)
	admin.POST("/foods", h.CreateFood)
	admin.PUT("/foods/:id", h.UpdateFood)
	admin.DELETE("/foods/:id", h.DeleteFood)
	admin.PUT("/orders/:id", h.UpdateOrderStatus)
	admin.DELETE("/orders/:id", h.DeleteOrder)
	admin.GET("/users", h.Users)
	admin.POST("/users", h.CreateUser)

	if d.Backend != nil {
		proxy := newProxy(d.Backend, backendPrefix, d.App.Sessions)
		e.Any(backendPrefix, proxy)
		e.Any(backendPrefix+"/*", proxy)
	}

	return nil
}
