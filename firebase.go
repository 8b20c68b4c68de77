package fireauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// DefaultSecureTokenURL exchanges refresh tokens for fresh ID tokens.
const DefaultSecureTokenURL = "https://securetoken.googleapis.com/v1/token"

// FirebaseProvider talks to Firebase Authentication through the Identity
// Toolkit REST API, the same endpoints the browser SDK uses for email and
// password accounts.
type FirebaseProvider struct {
	APIKey string

	// Token endpoint used to refresh expired ID tokens. Defaults to
	// DefaultSecureTokenURL.
	TokenURL string

	// Optional client for token refreshes
	HTTPClient *http.Client

	svc *identitytoolkit.Service
}

// NewFirebaseProvider creates a provider for the project owning apiKey. Extra
// options (endpoint, HTTP client) are passed to the Identity Toolkit client.
func NewFirebaseProvider(ctx context.Context, apiKey string, opts ...option.ClientOption) (*FirebaseProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("firebase api key required")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return &FirebaseProvider{
		APIKey:   apiKey,
		TokenURL: DefaultSecureTokenURL,
		svc:      svc,
	}, nil
}

func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (*Credential, error) {
	resp, err := p.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, firebaseError(err)
	}
	return p.credential(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	resp, err := p.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, firebaseError(err)
	}
	return p.credential(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken, resp.ExpiresIn), nil
}

// IDToken returns the cached ID token, exchanging the refresh token for a new
// one when it is about to expire.
func (p *FirebaseProvider) IDToken(ctx context.Context, cred *Credential) (string, error) {
	if cred == nil || cred.Token == nil {
		return "", NewAuthError(ErrCodeUserNotFound, "no signed in user", "")
	}
	if cred.Token.Valid() {
		return cred.Token.AccessToken, nil
	}

	if p.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.tokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	tok, err := conf.TokenSource(ctx, cred.Token).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", NewAuthError(ErrCodeInvalidIDToken, retrieveErr.ErrorCode, "")
		}
		return "", firebaseError(err)
	}
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		tok.AccessToken = idToken
	}
	cred.Token = tok
	slog.Debug("refreshed id token", "user_id", cred.UserID)
	return tok.AccessToken, nil
}

// SignOut only drops the client side session, as the hosted SDK does.
func (p *FirebaseProvider) SignOut(ctx context.Context, cred *Credential) error {
	if cred != nil {
		cred.Token = nil
	}
	return ctx.Err()
}

// VerifyToken resolves an ID token to its account through the provider, so
// validity is decided there and not here.
func (p *FirebaseProvider) VerifyToken(ctx context.Context, idToken string) (*AccountInfo, error) {
	if idToken == "" {
		return nil, NewAuthError(ErrCodeInvalidIDToken, "empty id token", "")
	}
	resp, err := p.svc.Relyingparty.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, firebaseError(err)
	}
	if len(resp.Users) == 0 {
		return nil, NewAuthError(ErrCodeUserNotFound, "no account for id token", "")
	}
	user := resp.Users[0]
	return &AccountInfo{UserID: user.LocalId, Email: user.Email}, nil
}

func (p *FirebaseProvider) credential(userID, email, idToken, refreshToken string, expiresIn int64) *Credential {
	if expiresIn <= 0 {
		expiresIn = int64(DefaultIDTokenExpiry / time.Second)
	}
	return &Credential{
		UserID: userID,
		Email:  email,
		Token: &oauth2.Token{
			AccessToken:  idToken,
			TokenType:    "Bearer",
			RefreshToken: refreshToken,
			Expiry:       time.Now().Add(time.Duration(expiresIn) * time.Second),
		},
	}
}

func (p *FirebaseProvider) tokenURL() string {
	base := p.TokenURL
	if base == "" {
		base = DefaultSecureTokenURL
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "key=" + url.QueryEscape(p.APIKey)
}

// firebaseErrorCodes maps Identity Toolkit error messages to error codes.
var firebaseErrorCodes = map[string]string{
	"EMAIL_EXISTS":              ErrCodeEmailExists,
	"INVALID_EMAIL":             ErrCodeInvalidEmail,
	"WEAK_PASSWORD":             ErrCodeWeakPassword,
	"MISSING_PASSWORD":          ErrCodeMissingField,
	"MISSING_EMAIL":             ErrCodeMissingField,
	"EMAIL_NOT_FOUND":           ErrCodeInvalidCreds,
	"INVALID_PASSWORD":          ErrCodeInvalidCreds,
	"INVALID_LOGIN_CREDENTIALS": ErrCodeInvalidCreds,
	"USER_DISABLED":             ErrCodeInvalidCreds,
	"USER_NOT_FOUND":            ErrCodeUserNotFound,
	"INVALID_ID_TOKEN":          ErrCodeInvalidIDToken,
	"TOKEN_EXPIRED":             ErrCodeInvalidIDToken,
}

// firebaseError converts a client error into an *AuthError. API messages look
// like "WEAK_PASSWORD : Password should be at least 6 characters".
func firebaseError(err error) *AuthError {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		reason, detail, _ := strings.Cut(apiErr.Message, " : ")
		reason = strings.TrimSpace(reason)
		if detail == "" {
			detail = reason
		}
		if code, ok := firebaseErrorCodes[reason]; ok {
			return NewAuthError(code, detail, "")
		}
		return NewAuthError(ErrCodeInternal, apiErr.Message, "")
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewAuthError(ErrCodeNetwork, err.Error(), "")
	}
	return AsAuthError(err)
}
