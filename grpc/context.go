// Package grpc carries the fireauth session into gRPC services. The
// interceptors verify the session token a client sends (as a cookie or a
// bearer token) and expose the verified user to handlers.
package grpc

import (
	"context"
	"strings"

	fa "github.com/panyam/fireauth"
	"google.golang.org/grpc/metadata"
)

// Keys names the metadata entries the session travels in. Zero fields fall
// back to DefaultKeys.
type Keys struct {
	// Set by the interceptor to the verified user id; never trusted from
	// clients
	UserID string

	// Raw cookie string, as a browser or cookie file would send it
	Cookie string

	// "Bearer <token>"
	Authorization string
}

// DefaultKeys returns the keys used when none are configured.
func DefaultKeys() Keys {
	return Keys{
		UserID:        "x-user-id",
		Cookie:        "cookie",
		Authorization: "authorization",
	}
}

func (k Keys) orDefault() Keys {
	def := DefaultKeys()
	if k.UserID == "" {
		k.UserID = def.UserID
	}
	if k.Cookie == "" {
		k.Cookie = def.Cookie
	}
	if k.Authorization == "" {
		k.Authorization = def.Authorization
	}
	return k
}

// UserID returns the id of the user the interceptor verified for this call,
// or "" for anonymous calls and for handlers not behind the interceptor.
// The user id metadata entry is never consulted, since clients can send it.
func UserID(ctx context.Context) string {
	if user := fa.UserFromContext(ctx); user != nil {
		return user.UserID
	}
	return ""
}

// Authenticated reports whether the call carries a verified user.
func Authenticated(ctx context.Context) bool {
	return UserID(ctx) != ""
}

// SessionToken pulls the session token out of call metadata. The "token"
// cookie wins over a bearer value.
func SessionToken(md metadata.MD, keys Keys) string {
	keys = keys.orDefault()
	if token := fa.ParseCookieToken(strings.Join(md.Get(keys.Cookie), "; ")); token != "" {
		return token
	}
	for _, value := range md.Get(keys.Authorization) {
		if token, ok := strings.CutPrefix(value, "Bearer "); ok && token != "" {
			return token
		}
	}
	return ""
}

// WithBearerToken sends token on outgoing calls made with ctx.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultKeys().Authorization, "Bearer "+token)
}

// WithCookie forwards a raw cookie string (from a browser request or a
// cookie file) on outgoing calls made with ctx.
func WithCookie(ctx context.Context, rawCookie string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, DefaultKeys().Cookie, rawCookie)
}
