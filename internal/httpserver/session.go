package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
)

type sessionView struct {
	Authenticated bool            `json:"authenticated"`
	Session       *models.Session `json:"session,omitempty"`
	Cart          cartView        `json:"cart"`
}

type loginView struct {
	Session  *models.Session `json:"session"`
	Restored int             `json:"restored"`
	Cart     cartView        `json:"cart"`
}

func (h *Handler) GetSession(c echo.Context) error {
	s := h.App.Session()
	return c.JSON(http.StatusOK, sessionView{
		Authenticated: s != nil,
		Session:       s,
		Cart:          h.cartView(),
	})
}

func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}

	res, err := h.App.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(l, "login_error", err)
	}

	l.Info("login_succeeded", "username", res.Session.Username, "restored", res.Restored)
	return c.JSON(http.StatusOK, loginView{Session: res.Session, Restored: res.Restored, Cart: h.cartView()})
}

func (h *Handler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.register")

	var req struct {
		models.NewUser
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}

	res, err := h.App.Register(ctx, req.NewUser, req.ConfirmPassword)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_succeeded", "username", res.Session.Username)
	return c.JSON(http.StatusCreated, loginView{Session: res.Session, Restored: res.Restored, Cart: h.cartView()})
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.logout")

	if err := h.App.Logout(ctx); err != nil {
		return fail(l, "logout_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Welcome hands out the post-login greeting once.
func (h *Handler) Welcome(c echo.Context) error {
	w, ok := h.App.ConsumeWelcome(c.Request().Context())
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, w)
}
