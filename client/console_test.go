package client

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fa "github.com/panyam/fireauth"
	"golang.org/x/oauth2"
)

// fakeProvider signs in a single known account
type fakeProvider struct{}

func (fakeProvider) CreateUser(ctx context.Context, email, password string) (*fa.Credential, error) {
	return nil, fa.NewAuthError(fa.ErrCodeEmailExists, "The email address is already in use by another account.", "")
}

func (fakeProvider) SignIn(ctx context.Context, email, password string) (*fa.Credential, error) {
	if email != "a@example.com" || password != "secret1" {
		return nil, fa.NewAuthError(fa.ErrCodeInvalidCreds, "Invalid email or password", "")
	}
	return &fa.Credential{UserID: "u1", Email: email, Token: &oauth2.Token{AccessToken: "id-token-1"}}, nil
}

func (fakeProvider) IDToken(ctx context.Context, cred *fa.Credential) (string, error) {
	if cred == nil || cred.Token == nil {
		return "", errors.New("no credential")
	}
	return cred.Token.AccessToken, nil
}

func (fakeProvider) SignOut(ctx context.Context, cred *fa.Credential) error { return nil }

func (fakeProvider) VerifyToken(ctx context.Context, idToken string) (*fa.AccountInfo, error) {
	if idToken == "id-token-1" {
		return &fa.AccountInfo{UserID: "u1", Email: "a@example.com"}, nil
	}
	return nil, fa.NewAuthError(fa.ErrCodeInvalidIDToken, "invalid token", "")
}

func wait(t *testing.T, f *fa.Future) fa.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	return result
}

func TestConsoleSession(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(&out)
	jar, err := NewCookieFile(filepath.Join(t.TempDir(), "cookies.json"), "")
	if err != nil {
		t.Fatal(err)
	}

	c := fa.NewSessionController(fakeProvider{}, jar, console, console)
	state := c.Initialize()
	if state.LoggedIn {
		t.Fatal("expected logged out state with an empty jar")
	}
	if console.Hidden(fa.ElementLoginBox) || !console.Hidden(fa.ElementSignOut) {
		t.Error("expected login box visible and sign out hidden")
	}

	if result := wait(t, c.Login(context.Background(), "a@example.com", "wrong")); result.OK() {
		t.Fatal("expected login with wrong password to fail")
	}
	if console.Location() != "" || jar.RawCookie() != "" {
		t.Error("failed login must not navigate or set cookies")
	}

	result := wait(t, c.Login(context.Background(), "a@example.com", "secret1"))
	if !result.OK() {
		t.Fatalf("expected login to succeed, got %v", result.Err)
	}
	if got := fa.ParseCookieToken(jar.RawCookie()); got != "id-token-1" {
		t.Errorf("expected token cookie, got %q", got)
	}
	if console.Location() != fa.RootPath {
		t.Errorf("expected navigation to /, got %q", console.Location())
	}
	if !strings.Contains(out.String(), "-> /") {
		t.Errorf("expected navigation to be printed, got %q", out.String())
	}

	// A fresh page load sees the persisted session
	state = fa.NewSessionController(fakeProvider{}, jar, console, console).Initialize()
	if !state.LoggedIn {
		t.Error("expected logged in state after login")
	}
	console.PrintState(state)
	if !strings.Contains(out.String(), "signed in") {
		t.Errorf("expected signed in summary, got %q", out.String())
	}

	if result := wait(t, c.SignOut(context.Background())); !result.OK() {
		t.Fatalf("sign out failed: %v", result.Err)
	}
	if fa.ParseCookieToken(jar.RawCookie()) != "" {
		t.Error("expected token to be cleared after sign out")
	}
}
