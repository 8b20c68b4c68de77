package fireauth

import (
	"net/http"
	"strings"
	"sync"
)

// requestBinding plays the page for a SessionController during one HTTP
// exchange: the request's Cookie header is the cookie jar, and cookies,
// navigation and visibility changes are buffered until the handler writes
// the response. Buffering keeps a late provider completion from touching a
// ResponseWriter whose handler has already returned.
type requestBinding struct {
	raw string

	mu       sync.Mutex
	cookies  []*http.Cookie
	location string
	hidden   map[string]bool
}

func newRequestBinding(r *http.Request) *requestBinding {
	return &requestBinding{
		raw:    rawCookieHeader(r),
		hidden: make(map[string]bool),
	}
}

func (b *requestBinding) RawCookie() string {
	return b.raw
}

func (b *requestBinding) SetCookie(c *http.Cookie) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cookies = append(b.cookies, c)
}

func (b *requestBinding) Navigate(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.location = path
}

func (b *requestBinding) SetHidden(elementID string, hidden bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hidden[elementID] = hidden
}

// Hidden reports the last visibility set for elementID.
func (b *requestBinding) Hidden(elementID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hidden[elementID]
}

// flush writes buffered cookies and, if the controller navigated, a 303
// redirect. It reports whether a redirect was written.
func (b *requestBinding) flush(w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	cookies := b.cookies
	location := b.location
	b.mu.Unlock()

	for _, c := range cookies {
		http.SetCookie(w, c)
	}
	if location == "" {
		return false
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
	return true
}

// rawCookieHeader joins every Cookie header of r into one cookie string.
func rawCookieHeader(r *http.Request) string {
	return strings.Join(r.Header.Values("Cookie"), "; ")
}
