package stores

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	fa "github.com/panyam/fireauth"
)

type emailIndex struct {
	Email  string `json:"email"`
	UserID string `json:"user_id"`
}

// FSAccountStore stores local accounts as JSON files, one per user id, plus
// an email index so logins can find the account.
type FSAccountStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewFSAccountStore(storagePath string) *FSAccountStore {
	return &FSAccountStore{StoragePath: storagePath}
}

func (s *FSAccountStore) accountPath(userID string) string {
	return filepath.Join(s.StoragePath, "accounts", safeName(userID))
}

func (s *FSAccountStore) emailPath(email string) string {
	return filepath.Join(s.StoragePath, "emails", safeName(normalizeEmail(email)))
}

func (s *FSAccountStore) CreateAccount(account *fa.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	emailPath := s.emailPath(email)
	if _, err := os.Stat(emailPath); err == nil {
		return fmt.Errorf("account %s: %w", email, fa.ErrAlreadyExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	account.Email = email
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	if err := writeJSON(s.accountPath(account.UserID), account); err != nil {
		return err
	}
	return writeJSON(emailPath, &emailIndex{Email: email, UserID: account.UserID})
}

func (s *FSAccountStore) GetAccountByEmail(email string) (*fa.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var index emailIndex
	if err := readJSON(s.emailPath(email), "account", email, &index); err != nil {
		return nil, err
	}
	return s.getAccount(index.UserID)
}

func (s *FSAccountStore) GetAccount(userID string) (*fa.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAccount(userID)
}

func (s *FSAccountStore) getAccount(userID string) (*fa.Account, error) {
	var account fa.Account
	if err := readJSON(s.accountPath(userID), "account", userID, &account); err != nil {
		return nil, err
	}
	return &account, nil
}
