package fireauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// Defaults for the LocalProvider
const (
	DefaultLocalIssuer       = "fireauth-local"
	DefaultLocalAudience     = "fireauth"
	DefaultIDTokenExpiry     = time.Hour
	DefaultMinPasswordLength = 6
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LocalProvider is a self-contained identity provider for development and
// tests. Passwords are hashed with bcrypt and ID tokens are HS256 JWTs shaped
// like the hosted provider's (sub, user_id, email).
type LocalProvider struct {
	Accounts AccountStore

	// JWT configuration
	JWTSecretKey string
	JWTIssuer    string
	JWTAudience  string

	// Defaults to one hour
	IDTokenExpiry time.Duration

	// Defaults to 6
	MinPasswordLength int

	// Overridable clock, mostly for tests
	Now func() time.Time
}

func NewLocalProvider(accounts AccountStore, secretKey string) *LocalProvider {
	return (&LocalProvider{Accounts: accounts, JWTSecretKey: secretKey}).EnsureDefaults()
}

func (p *LocalProvider) EnsureDefaults() *LocalProvider {
	if p.JWTIssuer == "" {
		p.JWTIssuer = DefaultLocalIssuer
	}
	if p.JWTAudience == "" {
		p.JWTAudience = DefaultLocalAudience
	}
	if p.IDTokenExpiry <= 0 {
		p.IDTokenExpiry = DefaultIDTokenExpiry
	}
	if p.MinPasswordLength <= 0 {
		p.MinPasswordLength = DefaultMinPasswordLength
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

func (p *LocalProvider) CreateUser(ctx context.Context, email, password string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if authErr := p.validate(email, password); authErr != nil {
		return nil, authErr
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := newUserID()
	if err != nil {
		return nil, err
	}
	account := &Account{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(passwordHash),
		CreatedAt:    p.Now(),
	}
	if err := p.Accounts.CreateAccount(account); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, NewAuthError(ErrCodeEmailExists, "The email address is already in use by another account.", "email")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.Printf("Created local account %s for %s", account.UserID, email)
	return p.issue(account)
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, NewAuthError(ErrCodeMissingField, "email and password required", "")
	}

	account, err := p.Accounts.GetAccountByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, NewAuthError(ErrCodeInvalidCreds, "Invalid credentials", "password")
	}
	return p.issue(account)
}

// IDToken returns the credential's token while it is valid and mints a fresh
// one for the same account once it has expired.
func (p *LocalProvider) IDToken(ctx context.Context, cred *Credential) (string, error) {
	if cred == nil {
		return "", NewAuthError(ErrCodeUserNotFound, "no signed in user", "")
	}
	if cred.Token != nil && cred.Token.AccessToken != "" && cred.Token.Expiry.After(p.Now()) {
		return cred.Token.AccessToken, nil
	}
	account, err := p.Accounts.GetAccount(cred.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", NewAuthError(ErrCodeUserNotFound, "account no longer exists", "")
		}
		return "", err
	}
	fresh, err := p.issue(account)
	if err != nil {
		return "", err
	}
	cred.Token = fresh.Token
	return fresh.Token.AccessToken, nil
}

// SignOut has nothing to revoke: ID tokens stay valid until they expire.
func (p *LocalProvider) SignOut(ctx context.Context, cred *Credential) error {
	return ctx.Err()
}

func (p *LocalProvider) VerifyToken(ctx context.Context, idToken string) (*AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token, err := jwt.Parse(idToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.JWTSecretKey), nil
	},
		jwt.WithIssuer(p.JWTIssuer),
		jwt.WithAudience(p.JWTAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.Now),
	)
	if err != nil {
		return nil, NewAuthError(ErrCodeInvalidIDToken, err.Error(), "")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, NewAuthError(ErrCodeInvalidIDToken, "invalid claims", "")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, NewAuthError(ErrCodeInvalidIDToken, "missing subject", "")
	}
	email, _ := claims["email"].(string)
	return &AccountInfo{UserID: sub, Email: email}, nil
}

func (p *LocalProvider) issue(account *Account) (*Credential, error) {
	now := p.Now()
	expiresAt := now.Add(p.IDTokenExpiry)
	claims := jwt.MapClaims{
		"sub":     account.UserID,
		"user_id": account.UserID,
		"email":   account.Email,
		"iss":     p.JWTIssuer,
		"aud":     p.JWTAudience,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.JWTSecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Credential{
		UserID: account.UserID,
		Email:  account.Email,
		Token: &oauth2.Token{
			AccessToken: tokenString,
			TokenType:   "Bearer",
			Expiry:      expiresAt,
		},
	}, nil
}

func (p *LocalProvider) validate(email, password string) *AuthError {
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	if password == "" {
		return NewAuthError(ErrCodeMissingField, "Password is required", "password")
	}
	if !emailRegex.MatchString(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if len(password) < p.MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters", p.MinPasswordLength), "password")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
