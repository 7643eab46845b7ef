package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Skotchmaster/food_client/internal/models"
)

type fixedSession struct{ s *models.Session }

func (f fixedSession) Current() *models.Session { return f.s }

func TestGuard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		session  *models.Session
		admin    bool
		want     int
		wantUser string
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "anonymous admin route", admin: true, want: http.StatusUnauthorized},
		{name: "customer", session: &models.Session{Username: "alice", Role: models.RoleCustomer}, want: http.StatusOK, wantUser: "alice"},
		{name: "customer on admin route", session: &models.Session{Username: "alice", Role: models.RoleCustomer}, admin: true, want: http.StatusForbidden},
		{name: "admin", session: &models.Session{Username: "root", Role: models.RoleAdmin}, admin: true, want: http.StatusOK, wantUser: "root"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := NewGuard(fixedSession{tt.session})
			mw := g.RequireAuth
			if tt.admin {
				mw = g.RequireAdmin
			}

			e := echo.New()
			e.GET("/x", func(c echo.Context) error {
				return c.String(http.StatusOK, c.Get("username").(string))
			}, mw)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.want, rec.Code)
			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, rec.Body.String())
			}
		})
	}
}
