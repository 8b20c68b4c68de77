package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	fa "github.com/panyam/fireauth"
	"github.com/panyam/fireauth/client"
)

// credentialsEnv lets scripts pass credentials without flags.
type credentialsEnv struct {
	Email    string `env:"FIREAUTH_EMAIL"`
	Password string `env:"FIREAUTH_PASSWORD"`
}

var sessionFlags struct {
	email    string
	password string
	server   string
}

// session is a SessionController whose page is the terminal and whose cookie
// jar is the cookie file.
type session struct {
	*fa.SessionController
	console *client.Console
	jar     *client.CookieFile
	backend *backend
}

func openSession(ctx context.Context) (*session, error) {
	jar, err := client.NewCookieFile(cfg.CookieFile, "fireauth")
	if err != nil {
		return nil, err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(ctx, cfg, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	console := client.NewConsole(os.Stdout)
	return &session{
		SessionController: fa.NewSessionController(provider, jar, console, console),
		console:           console,
		jar:               jar,
		backend:           b,
	}, nil
}

func (s *session) Close() { s.backend.Close() }

// wait blocks for an action and turns a failed result into an error.
func wait(ctx context.Context, f *fa.Future) (fa.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ActionTimeout)
	defer cancel()
	result, err := f.Wait(ctx)
	if err != nil {
		return result, fa.AsAuthError(err)
	}
	if !result.OK() {
		return result, result.Err
	}
	return result, nil
}

func credentials() (email, password string, err error) {
	var fromEnv credentialsEnv
	if err := ParseEnv(&fromEnv); err != nil {
		return "", "", err
	}
	email, password = sessionFlags.email, sessionFlags.password
	if email == "" {
		email = fromEnv.Email
	}
	if password == "" {
		password = fromEnv.Password
	}
	if email == "" || password == "" {
		return "", "", errors.New("--email and --password (or FIREAUTH_EMAIL and FIREAUTH_PASSWORD) are required")
	}
	return email, password, nil
}

func startSessionCommand(use, short string, start func(context.Context, *session, string, string) *fa.Future) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := credentials()
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if s.Initialize().LoggedIn {
				fmt.Println("Replacing the current session")
			}
			if _, err := wait(cmd.Context(), start(cmd.Context(), s, email, password)); err != nil {
				return err
			}
			fmt.Printf("Signed in as %s (cookie: %s)\n", email, s.jar.Path())
			return nil
		},
	}
}

var signupCmd = startSessionCommand("signup", "Create an account and sign in",
	func(ctx context.Context, s *session, email, password string) *fa.Future {
		return s.SignUp(ctx, email, password)
	})

var loginCmd = startSessionCommand("login", "Sign in to an existing account",
	func(ctx context.Context, s *session, email, password string) *fa.Future {
		return s.Login(ctx, email, password)
	})

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "End the session and clear the token cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := wait(cmd.Context(), s.SignOut(cmd.Context())); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the cookie file holds a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if sessionFlags.server != "" {
			return remoteStatus(cmd.Context(), sessionFlags.server)
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		state := s.Initialize()
		s.console.PrintState(state)
		if !state.LoggedIn {
			return nil
		}
		user, err := s.Provider.VerifyToken(cmd.Context(), fa.ParseCookieToken(s.jar.RawCookie()))
		if err != nil {
			fmt.Printf("Token rejected by provider: %v\n", fa.AsAuthError(err).Message)
			return nil
		}
		fmt.Printf("User: %s (%s)\n", user.Email, user.UserID)
		return nil
	},
}

// remoteStatus asks a running server who the stored session belongs to.
func remoteStatus(ctx context.Context, server string) error {
	jar, err := client.NewCookieFile(cfg.CookieFile, "fireauth")
	if err != nil {
		return err
	}
	endpoint, err := url.JoinPath(server, "/auth/me")
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.NewCookieClient(jar).Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var authErr fa.AuthError
		json.NewDecoder(resp.Body).Decode(&authErr)
		fmt.Printf("Not signed in at %s (%s)\n", server, authErr.Code)
		return nil
	}
	var user fa.AccountInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	fmt.Printf("Signed in at %s as %s (%s)\n", server, user.Email, user.UserID)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVar(&sessionFlags.email, "email", "", "Account email")
		c.Flags().StringVar(&sessionFlags.password, "password", "", "Account password")
		rootCmd.AddCommand(c)
	}
	statusCmd.Flags().StringVar(&sessionFlags.server, "server", "", "Ask a running server instead of the provider")
	rootCmd.AddCommand(signoutCmd, statusCmd)
}
