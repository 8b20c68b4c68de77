package grpc

import (
	"context"
	"errors"
	"testing"

	fa "github.com/panyam/fireauth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// staticVerifier accepts exactly the tokens in its map
type staticVerifier map[string]*fa.AccountInfo

func (v staticVerifier) VerifyToken(ctx context.Context, token string) (*fa.AccountInfo, error) {
	if user, ok := v[token]; ok {
		return user, nil
	}
	return nil, errors.New("bad token")
}

var testVerifier = staticVerifier{
	"good": {UserID: "user123", Email: "a@example.com"},
}

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestRequireSession(t *testing.T) {
	opts := RequireSession(testVerifier, "/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if opts.AllowAnonymous {
		t.Error("expected sessions to be required")
	}
	if !opts.Public["/pkg.Svc/Method1"] || !opts.Public["/pkg.Svc/Method2"] {
		t.Error("expected Method1 and Method2 to be public")
	}
	if opts.Public["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
	if !AllowAnonymous(testVerifier).AllowAnonymous {
		t.Error("expected anonymous calls to be allowed")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		opts     *Options
		ctx      context.Context
		method   string
		wantCode codes.Code
		wantUser string
	}{
		{"no token", RequireSession(testVerifier), context.Background(), "/pkg.Svc/Method", codes.Unauthenticated, ""},
		{"cookie token", RequireSession(testVerifier), incoming("cookie", "token=good"), "/pkg.Svc/Method", codes.OK, "user123"},
		{"bearer token", RequireSession(testVerifier), incoming("authorization", "Bearer good"), "/pkg.Svc/Method", codes.OK, "user123"},
		{"bad token", RequireSession(testVerifier), incoming("cookie", "token=bad"), "/pkg.Svc/Method", codes.Unauthenticated, ""},
		{"spoofed user id", RequireSession(testVerifier), incoming("x-user-id", "someone"), "/pkg.Svc/Method", codes.Unauthenticated, ""},
		{"public method", RequireSession(testVerifier, "/pkg.Svc/Public"), context.Background(), "/pkg.Svc/Public", codes.OK, ""},
		{"anonymous allowed", AllowAnonymous(testVerifier), incoming("x-user-id", "someone"), "/pkg.Svc/Method", codes.OK, ""},
		{"custom keys", &Options{Verifier: testVerifier, Keys: Keys{Authorization: "x-auth"}}, incoming("x-auth", "Bearer good"), "/pkg.Svc/Method", codes.OK, "user123"},
		{"nil options", nil, incoming("cookie", "token=good"), "/pkg.Svc/Method", codes.Unauthenticated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := UnaryServerInterceptor(tt.opts)
			info := &grpc.UnaryServerInfo{FullMethod: tt.method}

			var gotUser string
			handlerCalled := false
			_, err := interceptor(tt.ctx, nil, info, func(ctx context.Context, req any) (any, error) {
				handlerCalled = true
				gotUser = UserID(ctx)
				return "result", nil
			})

			if status.Code(err) != tt.wantCode {
				t.Fatalf("expected code %v, got %v (%v)", tt.wantCode, status.Code(err), err)
			}
			if tt.wantCode != codes.OK {
				if handlerCalled {
					t.Error("handler should not be called")
				}
				return
			}
			if !handlerCalled {
				t.Fatal("handler should have been called")
			}
			if gotUser != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, gotUser)
			}
		})
	}
}

// mockServerStream implements grpc.ServerStream for testing
type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context { return m.ctx }

func TestStreamServerInterceptor_NoSession(t *testing.T) {
	interceptor := StreamServerInterceptor(RequireSession(testVerifier))

	stream := &mockServerStream{ctx: context.Background()}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	err := interceptor(nil, stream, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})

	st, ok := status.FromError(err)
	if err == nil || !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated code, got %v", st.Code())
	}
}

func TestStreamServerInterceptor_WithToken(t *testing.T) {
	interceptor := StreamServerInterceptor(RequireSession(testVerifier))

	stream := &mockServerStream{ctx: incoming("cookie", "theme=dark; token=good")}
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/StreamMethod"}

	var user *fa.AccountInfo
	var fromMetadata []string
	err := interceptor(nil, stream, info, func(srv any, ss grpc.ServerStream) error {
		user = fa.UserFromContext(ss.Context())
		md, _ := metadata.FromIncomingContext(ss.Context())
		fromMetadata = md.Get("x-user-id")
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Email != "a@example.com" {
		t.Errorf("expected verified user in stream context, got %+v", user)
	}
	if len(fromMetadata) != 1 || fromMetadata[0] != "user123" {
		t.Errorf("expected verified user id in metadata, got %v", fromMetadata)
	}
}
