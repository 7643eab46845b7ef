package httpserver

import (
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type TokenSource interface {
	Token() string
}

// newProxy forwards requests under stripPrefix to the backend, signed with
// the cached session token. Local cookies never leave the process.
func newProxy(target *url.URL, stripPrefix string, tokens TokenSource) echo.HandlerFunc {
	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = baseTransport

	origDirector := p.Director
	p.Director = func(req *http.Request) {
		originalHost := req.Host
		originalProto := "http"
		if req.TLS != nil {
			originalProto = "https"
		}

		if stripPrefix != "" && strings.HasPrefix(req.URL.Path, stripPrefix) {
			req.URL.Path = strings.TrimPrefix(req.URL.Path, stripPrefix)
			if rp := req.URL.RawPath; rp != "" && strings.HasPrefix(rp, stripPrefix) {
				req.URL.RawPath = strings.TrimPrefix(rp, stripPrefix)
			}
		}

		origDirector(req)
		req.Host = target.Host

		req.Header.Del("Cookie")
		req.Header.Del(csrfHeader)
		if tok := tokens.Token(); tok != "" && req.Header.Get(echo.HeaderAuthorization) == "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		}

		if req.Header.Get("X-Forwarded-Proto") == "" {
			req.Header.Set("X-Forwarded-Proto", originalProto)
		}
		if req.Header.Get("X-Forwarded-Host") == "" && originalHost != "" {
			req.Header.Set("X-Forwarded-Host", originalHost)
		}
	}

	p.FlushInterval = 100 * time.Millisecond

	return func(c echo.Context) error {
		p.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
