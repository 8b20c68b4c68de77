package fireauth_test

import (
	"context"
	"testing"
	"time"

	fa "github.com/panyam/fireauth"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name         string
		cookie       string
		wantLoggedIn bool
	}{
		{"no cookie", "", false},
		{"token present", "token=abc", true},
		{"token among others", "a=1; token=xyz; b=2", true},
		{"empty token", "token=", false},
		{"other cookies only", "theme=dark", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage(tt.cookie)
			c := fa.NewSessionController(newFakeProvider(), page, page, page)

			state := c.Initialize()
			if state.LoggedIn != tt.wantLoggedIn {
				t.Errorf("LoggedIn = %v, want %v", state.LoggedIn, tt.wantLoggedIn)
			}
			if page.hidden[fa.ElementLoginBox] != tt.wantLoggedIn {
				t.Errorf("login box hidden = %v, want %v", page.hidden[fa.ElementLoginBox], tt.wantLoggedIn)
			}
			if page.hidden[fa.ElementSignOut] == tt.wantLoggedIn {
				t.Errorf("sign out hidden = %v, want %v", page.hidden[fa.ElementSignOut], !tt.wantLoggedIn)
			}
			if cookies, nav := page.snapshot(); len(cookies) != 0 || len(nav) != 0 {
				t.Error("Initialize must not write cookies or navigate")
			}
		})
	}
}

func TestSignUpAndLogin_Success(t *testing.T) {
	tests := []struct {
		name  string
		start func(c *fa.SessionController) *fa.Future
		email string
	}{
		{"sign up", func(c *fa.SessionController) *fa.Future {
			return c.SignUp(context.Background(), "new@example.com", "secret1")
		}, "new@example.com"},
		{"login", func(c *fa.SessionController) *fa.Future {
			return c.Login(context.Background(), "a@example.com", "secret1")
		}, "a@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage("")
			c := fa.NewSessionController(newFakeProvider(), page, page, page)

			result := waitResult(t, tt.start(c))
			if !result.OK() {
				t.Fatalf("expected success, got %v", result.Err)
			}
			if result.Token != "tok-"+tt.email {
				t.Errorf("unexpected token %q", result.Token)
			}

			cookies, nav := page.snapshot()
			if len(cookies) != 1 || cookies[0].Name != "token" || cookies[0].Value != "tok-"+tt.email {
				t.Fatalf("expected token cookie, got %+v", cookies)
			}
			if cookies[0].Path != "/" {
				t.Errorf("expected cookie path /, got %q", cookies[0].Path)
			}
			if len(nav) != 1 || nav[0] != "/" {
				t.Errorf("expected navigation to /, got %v", nav)
			}
			if c.Credential() == nil || c.Credential().Email != tt.email {
				t.Errorf("expected credential for %s, got %+v", tt.email, c.Credential())
			}
		})
	}
}

func TestSignUpAndLogin_Failure(t *testing.T) {
	tests := []struct {
		name     string
		start    func(c *fa.SessionController) *fa.Future
		wantCode string
	}{
		{"existing email", func(c *fa.SessionController) *fa.Future {
			return c.SignUp(context.Background(), "a@example.com", "secret1")
		}, fa.ErrCodeEmailExists},
		{"weak password", func(c *fa.SessionController) *fa.Future {
			return c.SignUp(context.Background(), "new@example.com", "123")
		}, fa.ErrCodeWeakPassword},
		{"wrong password", func(c *fa.SessionController) *fa.Future {
			return c.Login(context.Background(), "a@example.com", "nope")
		}, fa.ErrCodeInvalidCreds},
		{"unknown user", func(c *fa.SessionController) *fa.Future {
			return c.Login(context.Background(), "b@example.com", "secret1")
		}, fa.ErrCodeInvalidCreds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage("theme=dark")
			c := fa.NewSessionController(newFakeProvider(), page, page, page)
			c.Initialize()

			result := waitResult(t, tt.start(c))
			if result.OK() {
				t.Fatal("expected failure")
			}
			if result.Err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", result.Err.Code, tt.wantCode)
			}
			cookies, nav := page.snapshot()
			if len(cookies) != 0 || len(nav) != 0 {
				t.Errorf("failure must not touch cookie or location: %v %v", cookies, nav)
			}
			if page.RawCookie() != "theme=dark" {
				t.Errorf("cookie changed to %q", page.RawCookie())
			}
			if page.hidden[fa.ElementLoginBox] || !page.hidden[fa.ElementSignOut] {
				t.Error("failure must not change visibility")
			}
			if c.Credential() != nil {
				t.Error("failure must not record a credential")
			}
		})
	}
}

func TestSignOut(t *testing.T) {
	provider := newFakeProvider()
	page := newFakePage("")
	c := fa.NewSessionController(provider, page, page, page)

	if result := waitResult(t, c.Login(context.Background(), "a@example.com", "secret1")); !result.OK() {
		t.Fatalf("login failed: %v", result.Err)
	}
	result := waitResult(t, c.SignOut(context.Background()))
	if !result.OK() {
		t.Fatalf("sign out failed: %v", result.Err)
	}

	cookies, nav := page.snapshot()
	last := cookies[len(cookies)-1]
	if last.Name != "token" || last.Value != "" || last.Path != "/" {
		t.Errorf("expected emptied token cookie, got %+v", last)
	}
	if len(nav) != 2 || nav[1] != "/" {
		t.Errorf("expected navigation to / after sign out, got %v", nav)
	}
	if c.Credential() != nil {
		t.Error("expected credential to be dropped")
	}
	if provider.signOuts != 1 {
		t.Errorf("expected provider sign out, got %d calls", provider.signOuts)
	}

	// Reloading the page shows the signed out controls
	state := fa.NewSessionController(provider, page, page, page).Initialize()
	if state.LoggedIn {
		t.Error("expected logged out state after sign out")
	}
}

func TestSessionController_OneActionAtATime(t *testing.T) {
	provider := newFakeProvider()
	provider.block = make(chan struct{})
	page := newFakePage("")
	c := fa.NewSessionController(provider, page, page, page)

	first := c.Login(context.Background(), "a@example.com", "secret1")
	second := c.SignUp(context.Background(), "new@example.com", "secret1")

	rejected := waitResult(t, second)
	if rejected.OK() || rejected.Err.Code != fa.ErrCodeOperationInFlight {
		t.Fatalf("expected operation in progress, got %+v", rejected)
	}
	if _, done := first.Result(); done {
		t.Fatal("first action should still be in flight")
	}

	close(provider.block)
	if result := waitResult(t, first); !result.OK() {
		t.Fatalf("first action failed: %v", result.Err)
	}

	// The controller accepts new work once the first action resolved
	if result := waitResult(t, c.SignOut(context.Background())); !result.OK() {
		t.Fatalf("sign out after login failed: %v", result.Err)
	}
}

func TestSessionController_CancelledContext(t *testing.T) {
	provider := newFakeProvider()
	provider.block = make(chan struct{})
	page := newFakePage("")
	c := fa.NewSessionController(provider, page, page, page)

	ctx, cancel := context.WithCancel(context.Background())
	f := c.Login(ctx, "a@example.com", "secret1")
	cancel()

	result := waitResult(t, f)
	if result.OK() || result.Err.Code != fa.ErrCodeNetwork {
		t.Errorf("expected network error for a cancelled call, got %+v", result)
	}
	if cookies, _ := page.snapshot(); len(cookies) != 0 {
		t.Error("cancelled call must not set a cookie")
	}
}

func TestFutureWait(t *testing.T) {
	resolved := fa.Resolved(fa.Result{Token: "t"})
	if r, ok := resolved.Result(); !ok || r.Token != "t" {
		t.Errorf("expected resolved result, got %+v %v", r, ok)
	}
	select {
	case <-resolved.Done():
	default:
		t.Error("expected Done to be closed")
	}

	provider := newFakeProvider()
	provider.block = make(chan struct{})
	defer close(provider.block)
	page := newFakePage("")
	pending := fa.NewSessionController(provider, page, page, page).Login(context.Background(), "a@example.com", "secret1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := pending.Wait(ctx); err == nil {
		t.Error("expected Wait to give up when its context expires")
	}
}
