package client

import (
	"net/http"

	fa "github.com/panyam/fireauth"
)

// CookieTransport wraps an http.RoundTripper to send the session held in a
// cookie jar. The token goes out as the "token" cookie and as a bearer
// Authorization header.
type CookieTransport struct {
	Base http.RoundTripper
	Jar  fa.CookieJar
}

// RoundTrip implements http.RoundTripper
func (t *CookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := fa.ParseCookieToken(t.Jar.RawCookie()); token != "" {
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		req2.AddCookie(&http.Cookie{Name: fa.TokenCookieName, Value: token})
		req2.Header.Set("Authorization", "Bearer "+token)
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewCookieClient returns an http.Client that carries the session in jar.
func NewCookieClient(jar fa.CookieJar) *http.Client {
	return &http.Client{Transport: &CookieTransport{Base: http.DefaultTransport, Jar: jar}}
}
