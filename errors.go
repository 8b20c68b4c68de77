package fireauth

import (
	"context"
	"errors"
	"fmt"
)

// Error codes reported by identity providers and the session controller.
// They follow the "auth/<reason>" shape the hosted identity provider uses so
// that page scripts and logs see the same vocabulary on both sides.
const (
	ErrCodeEmailExists       = "auth/email-already-in-use"
	ErrCodeInvalidCreds      = "auth/invalid-credential"
	ErrCodeWeakPassword      = "auth/weak-password"
	ErrCodeInvalidEmail      = "auth/invalid-email"
	ErrCodeMissingField      = "auth/missing-field"
	ErrCodeUserNotFound      = "auth/user-not-found"
	ErrCodeInvalidIDToken    = "auth/invalid-id-token"
	ErrCodeNetwork           = "auth/network-request-failed"
	ErrCodeInternal          = "auth/internal-error"
	ErrCodeOperationInFlight = "auth/operation-in-progress"
)

// ErrNotFound is returned (wrapped) by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// AuthError is the failure variant of every identity provider call.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsAuthError converts any error into an *AuthError. Errors that are not
// already coded become network failures when they come from a cancelled or
// expired context and internal errors otherwise.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewAuthError(ErrCodeNetwork, err.Error(), "")
	}
	return NewAuthError(ErrCodeInternal, err.Error(), "")
}
