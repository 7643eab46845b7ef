// Package auth guards local routes with the cached session.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/food_client/internal/models"
)

type SessionSource interface {
	Current() *models.Session
}

type Guard struct {
	Sessions SessionSource
}

func NewGuard(s SessionSource) *Guard {
	return &Guard{Sessions: s}
}

type ValidatorFunc func(s *models.Session) error

func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return g.requireWithValidator(next, nil)
}

func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return g.requireWithValidator(next, func(s *models.Session) error {
		if !s.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (g *Guard) requireWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s := g.Sessions.Current()
		if s == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "please login")
		}
		if validator != nil {
			if err := validator(s); err != nil {
				return err
			}
		}

		setUserContext(c, s)
		return next(c)
	}
}

func setUserContext(c echo.Context, s *models.Session) {
	c.Set("username", s.Username)
	c.Set("role", string(s.Role))
}
