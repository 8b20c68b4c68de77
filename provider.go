package fireauth

import (
	"context"

	"golang.org/x/oauth2"
)

// Credential is what an identity provider hands back after a successful
// sign up or sign in. Token.AccessToken holds the ID token.
type Credential struct {
	UserID string
	Email  string
	Token  *oauth2.Token
}

// AccountInfo describes the account an ID token belongs to.
type AccountInfo struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IdentityProvider is the external service that owns accounts, passwords and
// session tokens. All authentication decisions are delegated to it.
type IdentityProvider interface {
	// CreateUser registers a new email/password account and signs it in
	CreateUser(ctx context.Context, email, password string) (*Credential, error)

	// SignIn authenticates an existing email/password account
	SignIn(ctx context.Context, email, password string) (*Credential, error)

	// IDToken returns the current ID token for cred, refreshing it if needed
	IDToken(ctx context.Context, cred *Credential) (string, error)

	// SignOut ends the provider side of the session. cred may be nil.
	SignOut(ctx context.Context, cred *Credential) error

	// VerifyToken asks the provider who an ID token belongs to
	VerifyToken(ctx context.Context, idToken string) (*AccountInfo, error)
}
