package fireauth_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	fa "github.com/panyam/fireauth"
	"golang.org/x/oauth2"
)

// fakeProvider knows one account per email. Setting block makes calls wait
// until it is closed, to hold an action in flight.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]string // email -> password
	block    chan struct{}
	signOuts int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]string{"a@example.com": "secret1"}}
}

func (p *fakeProvider) wait(ctx context.Context) error {
	p.mu.Lock()
	block := p.block
	p.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakeProvider) CreateUser(ctx context.Context, email, password string) (*fa.Credential, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return nil, fa.NewAuthError(fa.ErrCodeEmailExists, "The email address is already in use by another account.", "email")
	}
	if len(password) < 6 {
		return nil, fa.NewAuthError(fa.ErrCodeWeakPassword, "Password should be at least 6 characters", "password")
	}
	p.accounts[email] = password
	return credentialFor(email), nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*fa.Credential, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pw, ok := p.accounts[email]; !ok || pw != password {
		return nil, fa.NewAuthError(fa.ErrCodeInvalidCreds, "Invalid email or password", "")
	}
	return credentialFor(email), nil
}

func (p *fakeProvider) IDToken(ctx context.Context, cred *fa.Credential) (string, error) {
	return cred.Token.AccessToken, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, cred *fa.Credential) error {
	p.mu.Lock()
	p.signOuts++
	p.mu.Unlock()
	return nil
}

func (p *fakeProvider) VerifyToken(ctx context.Context, idToken string) (*fa.AccountInfo, error) {
	email, ok := strings.CutPrefix(idToken, "tok-")
	if !ok {
		return nil, fa.NewAuthError(fa.ErrCodeInvalidIDToken, "invalid id token", "")
	}
	return &fa.AccountInfo{UserID: "uid-" + email, Email: email}, nil
}

func credentialFor(email string) *fa.Credential {
	return &fa.Credential{
		UserID: "uid-" + email,
		Email:  email,
		Token:  &oauth2.Token{AccessToken: "tok-" + email, Expiry: time.Now().Add(time.Hour)},
	}
}

// fakePage is a cookie jar, view and navigator in one.
type fakePage struct {
	mu        sync.Mutex
	raw       string
	cookies   []*http.Cookie
	hidden    map[string]bool
	navigated []string
}

func newFakePage(raw string) *fakePage {
	return &fakePage{raw: raw, hidden: map[string]bool{}}
}

func (p *fakePage) RawCookie() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.raw
}

func (p *fakePage) SetCookie(c *http.Cookie) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, c)
	p.raw = c.Name + "=" + c.Value
}

func (p *fakePage) SetHidden(id string, hidden bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden[id] = hidden
}

func (p *fakePage) Navigate(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, path)
}

func (p *fakePage) snapshot() (cookies []*http.Cookie, navigated []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*http.Cookie(nil), p.cookies...), append([]string(nil), p.navigated...)
}

func waitResult(t *testing.T, f *fa.Future) fa.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := f.Wait(ctx)
	if err != nil {
		t.Fatalf("action did not complete: %v", err)
	}
	return result
}
