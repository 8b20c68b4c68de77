package grpc

import (
	"context"
	"log/slog"

	fa "github.com/panyam/fireauth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenVerifier checks a session token. fireauth.IdentityProvider satisfies it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*fa.AccountInfo, error)
}

// Options control which calls need a session.
type Options struct {
	Keys     Keys
	Verifier TokenVerifier

	// Let calls without a valid session through as anonymous
	AllowAnonymous bool

	// Full method names ("/pkg.Service/Method") that never need a session
	Public map[string]bool
}

// RequireSession rejects every call without a verified session except those
// to the public methods.
func RequireSession(verifier TokenVerifier, public ...string) *Options {
	opts := &Options{Verifier: verifier, Public: map[string]bool{}}
	for _, method := range public {
		opts.Public[method] = true
	}
	return opts
}

// AllowAnonymous verifies sessions when present and lets other calls through.
func AllowAnonymous(verifier TokenVerifier) *Options {
	return &Options{Verifier: verifier, AllowAnonymous: true}
}

// UnaryServerInterceptor attaches the verified user to each unary call.
func UnaryServerInterceptor(opts *Options) grpc.UnaryServerInterceptor {
	if opts == nil {
		opts = RequireSession(nil)
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := opts.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor attaches the verified user to each stream.
func StreamServerInterceptor(opts *Options) grpc.StreamServerInterceptor {
	if opts == nil {
		opts = RequireSession(nil)
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := opts.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &sessionStream{ServerStream: ss, ctx: ctx})
	}
}

type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionStream) Context() context.Context { return s.ctx }

// authenticate returns ctx with the verified user attached. A user id the
// client put in the metadata itself is always dropped.
func (o *Options) authenticate(ctx context.Context, method string) (context.Context, error) {
	keys := o.Keys.orDefault()
	md, _ := metadata.FromIncomingContext(ctx)
	md = md.Copy()
	md.Delete(keys.UserID)

	user := o.verify(ctx, md, keys, method)
	if user == nil {
		if !o.AllowAnonymous && !o.Public[method] {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return metadata.NewIncomingContext(ctx, md), nil
	}

	md.Set(keys.UserID, user.UserID)
	return fa.WithUser(metadata.NewIncomingContext(ctx, md), user), nil
}

func (o *Options) verify(ctx context.Context, md metadata.MD, keys Keys, method string) *fa.AccountInfo {
	token := SessionToken(md, keys)
	if token == "" || o.Verifier == nil {
		return nil
	}
	user, err := o.Verifier.VerifyToken(ctx, token)
	if err != nil {
		slog.Warn("rejected session token", "method", method, "error", err)
		return nil
	}
	if user == nil || user.UserID == "" {
		return nil
	}
	return user
}
