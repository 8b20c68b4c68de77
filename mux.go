package fireauth

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashKey = "flash"

// DefaultActionTimeout bounds how long a handler waits for a provider call.
const DefaultActionTimeout = 30 * time.Second

// App serves the login page and, when a BoardStore is configured, the task
// boards. Each request gets its own SessionController bound to the request's
// cookies.
type App struct {
	Provider   IdentityProvider
	Boards     *BoardService
	Session    *scs.SessionManager
	Middleware Middleware
	Logger     *slog.Logger

	// How long sign up / login / sign out handlers wait for the provider
	ActionTimeout time.Duration

	router *mux.Router
	pages  map[string]*template.Template
}

func NewApp(provider IdentityProvider, boards BoardStore) *App {
	a := &App{Provider: provider}
	if boards != nil {
		a.Boards = NewBoardService(boards)
	}
	return a.EnsureDefaults()
}

func (a *App) EnsureDefaults() *App {
	if a.Session == nil {
		a.Session = scs.New()
		a.Session.Cookie.Name = "fireauth_flash"
		a.Session.Cookie.SameSite = http.SameSiteStrictMode
	}
	if a.Logger == nil {
		a.Logger = slog.Default()
	}
	if a.ActionTimeout <= 0 {
		a.ActionTimeout = DefaultActionTimeout
	}
	if a.Middleware.Logger == nil {
		a.Middleware.Logger = a.Logger
	}
	if a.Middleware.Provider == nil {
		a.Middleware.Provider = a.Provider
	}
	a.Middleware.EnsureReasonableDefaults()
	if a.pages == nil {
		a.pages = mustParsePages("main.html", "create_board.html", "board.html")
	}
	return a
}

// Handler returns the app's routes wrapped with session loading.
func (a *App) Handler() http.Handler {
	return a.Session.LoadAndSave(a.setupRoutes().router)
}

func (a *App) setupRoutes() *App {
	if a.router != nil {
		return a
	}
	a.EnsureDefaults()
	r := mux.NewRouter()
	r.Use(requireSameOrigin)
	r.Handle("/", a.Middleware.ExtractUser(http.HandlerFunc(a.handleRoot))).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", a.handleSignUp).Methods(http.MethodPost)
	auth.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/signout", a.handleSignOut).Methods(http.MethodPost)
	auth.HandleFunc("/me", a.handleMe).Methods(http.MethodGet)

	if a.Boards != nil {
		a.setupBoardRoutes(r)
	}
	a.router = r
	return a
}

// controllerFor binds a SessionController to one HTTP exchange.
func (a *App) controllerFor(b *requestBinding) *SessionController {
	c := NewSessionController(a.Provider, b, b, b)
	c.Logger = a.Logger
	return c
}

type pageData struct {
	Title    string
	Flash    string
	View     ViewState
	User     *AccountInfo
	Overview *Overview
	Detail   *BoardDetail
}

func (a *App) handleRoot(w http.ResponseWriter, r *http.Request) {
	binding := newRequestBinding(r)
	state := a.controllerFor(binding).Initialize()

	data := &pageData{
		Title: "Task Boards",
		Flash: a.Session.PopString(r.Context(), flashKey),
		View: ViewState{
			LoggedIn:       state.LoggedIn,
			LoginBoxHidden: binding.Hidden(ElementLoginBox),
			SignOutHidden:  binding.Hidden(ElementSignOut),
		},
	}
	if user := UserFromContext(r.Context()); user != nil && state.LoggedIn {
		data.User = user
		data.Overview = &Overview{}
		if a.Boards != nil {
			overview, err := a.Boards.Overview(user)
			if err != nil {
				a.Logger.Error("failed to load boards", "user_id", user.UserID, "error", err)
			} else {
				data.Overview = overview
			}
		}
	}
	a.render(w, "main.html", data)
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	a.runAction(w, r, func(ctx context.Context, c *SessionController) *Future {
		return c.SignUp(ctx, r.PostFormValue(ElementEmail), r.PostFormValue(ElementPassword))
	})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.runAction(w, r, func(ctx context.Context, c *SessionController) *Future {
		return c.Login(ctx, r.PostFormValue(ElementEmail), r.PostFormValue(ElementPassword))
	})
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	a.runAction(w, r, func(ctx context.Context, c *SessionController) *Future {
		return c.SignOut(ctx)
	})
}

// runAction starts a session action, waits for it, then writes what the
// controller did (cookie + redirect). Failures leave the cookie untouched and
// are flashed on the page the user is sent back to.
func (a *App) runAction(w http.ResponseWriter, r *http.Request, start func(context.Context, *SessionController) *Future) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.ActionTimeout)
	defer cancel()

	binding := newRequestBinding(r)
	result, err := start(ctx, a.controllerFor(binding)).Wait(ctx)
	if err != nil {
		result.Err = AsAuthError(err)
	}
	if !result.OK() {
		a.Session.Put(r.Context(), flashKey, result.Err.Message)
		http.Redirect(w, r, RootPath, http.StatusSeeOther)
		return
	}
	if !binding.flush(w, r) {
		http.Redirect(w, r, RootPath, http.StatusSeeOther)
	}
}

// handleMe reports who the request's session belongs to, for clients that
// hold the cookie outside a browser.
func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	user := a.Middleware.GetLoggedInUser(r)
	if user == nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="fireauth"`)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(NewAuthError(ErrCodeInvalidIDToken, "not signed in", ""))
		return
	}
	json.NewEncoder(w).Encode(user)
}

func (a *App) render(w http.ResponseWriter, page string, data *pageData) {
	tmpl, ok := a.pages[page]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown page %s", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, page, data); err != nil {
		a.Logger.Error("failed to render page", "page", page, "error", err)
	}
}

func mustParsePages(pages ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		out[page] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
	}
	return out
}

// requireSameOrigin answers 403 to state-changing requests a browser sent
// from another site: Sec-Fetch-Site "cross-site", or an Origin whose host and
// port differ from the request's. Requests without either header (CLI
// clients, older browsers) pass.
func requireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutation(r) && !sameOrigin(r) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isMutation(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func sameOrigin(r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get("Sec-Fetch-Site")), "cross-site") {
		return false
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host, port := r.Host, ""
	if h, p, err := net.SplitHostPort(r.Host); err == nil {
		host, port = h, p
	}
	if port == "" {
		port = defaultPort(u.Scheme)
	}
	originPort := u.Port()
	if originPort == "" {
		originPort = defaultPort(u.Scheme)
	}
	return strings.EqualFold(u.Hostname(), strings.Trim(host, "[]")) && originPort == port
}

func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}

// isBoardError reports whether err is a board rule violation (as opposed to a
// storage failure).
func isBoardError(err error) bool {
	var boardErr *BoardError
	return errors.As(err, &boardErr)
}
