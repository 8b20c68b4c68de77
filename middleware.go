package fireauth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyUser contextKey = "loggedInUser"

// Middleware resolves the logged in user from the session cookie (or an
// Authorization bearer header) and makes it available to downstream
// handlers. Token validation is delegated to the identity provider.
type Middleware struct {
	Provider IdentityProvider

	// Where EnsureUser sends anonymous requests. Defaults to "/".
	DefaultRedirectURL string

	AuthTokenHeaderName string

	// Defaults to slog.Default()
	Logger *slog.Logger
}

/**
 * Ensures that config values have reasonable defaults.
 */
func (m *Middleware) EnsureReasonableDefaults() {
	if m.DefaultRedirectURL == "" {
		m.DefaultRedirectURL = RootPath
	}
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}
}

// UserFromContext returns the user stored by ExtractUser or EnsureUser.
func UserFromContext(ctx context.Context) *AccountInfo {
	if user, ok := ctx.Value(contextKeyUser).(*AccountInfo); ok {
		return user
	}
	return nil
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *AccountInfo) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// GetLoggedInUser returns the user for the current request, or nil.
func (m *Middleware) GetLoggedInUser(r *http.Request) *AccountInfo {
	if user := UserFromContext(r.Context()); user != nil {
		return user
	}
	if m.Provider == nil {
		m.logger().Warn("No identity provider found. Please set one")
		return nil
	}

	var tokens []string
	if token := ParseCookieToken(rawCookieHeader(r)); token != "" {
		tokens = append(tokens, token)
	}
	for _, header := range r.Header.Values(m.headerName()) {
		if bearer, ok := strings.CutPrefix(header, "Bearer "); ok && bearer != "" {
			tokens = append(tokens, bearer)
		}
	}

	for _, token := range tokens {
		user, err := m.Provider.VerifyToken(r.Context(), token)
		if err == nil && user != nil && user.UserID != "" {
			return user
		}
		if err != nil {
			m.logger().Warn("Error verifying token", "error", err)
		}
	}
	return nil
}

/**
 * Fetches the user from the request and stores it for other handlers.
 *
 * Note this does not perform any redirects if a valid user does not exist.
 * To also enforce a user exists, use EnsureUser.
 */
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := m.GetLoggedInUser(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := m.GetLoggedInUser(r)
		if user == nil {
			http.Redirect(w, r, m.DefaultRedirectURL, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (m *Middleware) headerName() string {
	if m.AuthTokenHeaderName == "" {
		return "Authorization"
	}
	return m.AuthTokenHeaderName
}

func (m *Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
