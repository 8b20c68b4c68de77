package fireauth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
)

// Element ids the login page must provide.
const (
	ElementSignUp   = "sign-up"
	ElementLogin    = "login"
	ElementSignOut  = "sign-out"
	ElementEmail    = "email"
	ElementPassword = "password"
	ElementLoginBox = "login-box"
)

// RootPath is where the controller navigates after every successful action.
const RootPath = "/"

// CookieJar gives the controller access to the page's cookies.
type CookieJar interface {
	// RawCookie returns all cookies as a single "k=v; k2=v2" string
	RawCookie() string
	SetCookie(c *http.Cookie)
}

// View toggles element visibility on the page.
type View interface {
	SetHidden(elementID string, hidden bool)
}

// Navigator moves the page to another location.
type Navigator interface {
	Navigate(path string)
}

// ViewState is the visibility derived from the session cookie.
type ViewState struct {
	LoggedIn       bool
	LoginBoxHidden bool
	SignOutHidden  bool
}

// ViewStateFor returns the visibility for a session token.
func ViewStateFor(token string) ViewState {
	loggedIn := len(token) > 0
	return ViewState{
		LoggedIn:       loggedIn,
		LoginBoxHidden: loggedIn,
		SignOutHidden:  !loggedIn,
	}
}

// SessionController keeps the session cookie and the login/sign-out controls
// in agreement, delegating every authentication step to an IdentityProvider.
//
// Only one action runs at a time: starting SignUp, Login or SignOut while
// another is in flight resolves immediately with ErrCodeOperationInFlight.
type SessionController struct {
	Provider  IdentityProvider
	Cookies   CookieJar
	View      View
	Navigator Navigator
	Logger    *slog.Logger

	busy atomic.Bool

	mu   sync.Mutex
	cred *Credential
}

func NewSessionController(provider IdentityProvider, cookies CookieJar, view View, nav Navigator) *SessionController {
	return &SessionController{
		Provider:  provider,
		Cookies:   cookies,
		View:      view,
		Navigator: nav,
		Logger:    slog.Default(),
	}
}

// Initialize reads the session token from the cookie jar and sets the
// visibility of the login box and the sign-out control to match.
func (c *SessionController) Initialize() ViewState {
	state := ViewStateFor(ParseCookieToken(c.Cookies.RawCookie()))
	c.apply(state)
	return state
}

// SignUp creates an account with the provider and, on success, stores the new
// session's ID token in the cookie and navigates to the root path.
func (c *SessionController) SignUp(ctx context.Context, email, password string) *Future {
	return c.run(ctx, "sign up", func(ctx context.Context) (Result, error) {
		cred, err := c.Provider.CreateUser(ctx, email, password)
		if err != nil {
			return Result{}, err
		}
		return c.startSession(ctx, cred)
	})
}

// Login signs an existing account in; success and failure are handled as in
// SignUp.
func (c *SessionController) Login(ctx context.Context, email, password string) *Future {
	return c.run(ctx, "login", func(ctx context.Context) (Result, error) {
		cred, err := c.Provider.SignIn(ctx, email, password)
		if err != nil {
			return Result{}, err
		}
		return c.startSession(ctx, cred)
	})
}

// SignOut ends the provider session, clears the cookie and navigates to the
// root path.
func (c *SessionController) SignOut(ctx context.Context) *Future {
	return c.run(ctx, "sign out", func(ctx context.Context) (Result, error) {
		c.mu.Lock()
		cred := c.cred
		c.mu.Unlock()

		if err := c.Provider.SignOut(ctx, cred); err != nil {
			return Result{}, err
		}

		c.mu.Lock()
		c.cred = nil
		c.mu.Unlock()

		c.Cookies.SetCookie(NewTokenCookie(""))
		c.Navigator.Navigate(RootPath)
		return Result{}, nil
	})
}

// Credential returns the credential of the session started by this
// controller, if any.
func (c *SessionController) Credential() *Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred
}

func (c *SessionController) startSession(ctx context.Context, cred *Credential) (Result, error) {
	token, err := c.Provider.IDToken(ctx, cred)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()

	c.Cookies.SetCookie(NewTokenCookie(token))
	c.Navigator.Navigate(RootPath)
	return Result{Token: token}, nil
}

func (c *SessionController) run(ctx context.Context, action string, call func(context.Context) (Result, error)) *Future {
	if !c.busy.CompareAndSwap(false, true) {
		authErr := NewAuthError(ErrCodeOperationInFlight, "another session action is in progress", "")
		c.logger().Warn(action+" rejected", "code", authErr.Code)
		return Resolved(Result{Err: authErr})
	}

	f := newFuture()
	go func() {
		result, err := call(ctx)
		if err != nil {
			authErr := AsAuthError(err)
			c.logger().Warn(action+" failed", "code", authErr.Code, "message", authErr.Message)
			result = Result{Err: authErr}
		}
		// release before resolving so a waiter can start the next action
		c.busy.Store(false)
		f.resolve(result)
	}()
	return f
}

func (c *SessionController) apply(state ViewState) {
	c.View.SetHidden(ElementLoginBox, state.LoginBoxHidden)
	c.View.SetHidden(ElementSignOut, state.SignOutHidden)
}

func (c *SessionController) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
