package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	cfg := DefaultConfig()
	cfg.SkipPaths = []string{"/health/live"}
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/cart", ok)
	e.POST("/api/cart", ok)
	e.GET("/health/live", ok)
	return e
}

func issue(t *testing.T, e *echo.Echo) (*http.Cookie, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	return res.Cookies()[0], rec.Header().Get("X-CSRF-Token")
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	e := newEcho()
	cookie, token := issue(t, e)
	assert.Equal(t, "XSRF-TOKEN", cookie.Name)
	assert.Equal(t, cookie.Value, token)

	tests := []struct {
		name   string
		cookie bool
		header string
		origin string
		want   int
	}{
		{name: "valid", cookie: true, header: token, want: http.StatusNoContent},
		{name: "same origin", cookie: true, header: token, origin: "http://example.com", want: http.StatusNoContent},
		{name: "missing header", cookie: true, want: http.StatusForbidden},
		{name: "wrong header", cookie: true, header: token + "x", want: http.StatusForbidden},
		{name: "no cookie", header: token, want: http.StatusForbidden},
		{name: "foreign origin", cookie: true, header: token, origin: "http://evil.test", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/cart", nil)
			if tt.cookie {
				req.AddCookie(cookie)
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMiddleware_SkipPaths(t *testing.T) {
	t.Parallel()

	e := newEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}
