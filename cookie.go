package fireauth

import (
	"net/http"
	"strings"
)

// TokenCookieName is the cookie that mirrors the identity provider's ID token.
const TokenCookieName = "token"

// ParseCookieToken returns the value of the first "token" entry in a raw
// cookie string (as found in a Cookie header or document.cookie), or "" when
// there is none.
//
// Segments are separated by ';' and split on their first '='. Leading
// whitespace before a key is skipped since user agents join entries with
// "; ". The value itself is returned as is.
func ParseCookieToken(cookie string) string {
	for _, segment := range strings.Split(cookie, ";") {
		key, value, _ := strings.Cut(segment, "=")
		if strings.TrimLeft(key, " \t") == TokenCookieName {
			return value
		}
	}
	return ""
}

// NewTokenCookie builds the session cookie for token. An empty token yields
// the cookie used on sign out: same name and attributes with an empty value.
func NewTokenCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}
}
