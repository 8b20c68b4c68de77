// Package client lets command line tools hold a fireauth session. A
// CookieFile plays the browser's cookie jar, a Console plays the page, and
// CookieTransport forwards the session to a running server.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// CookieFile is a cookie jar persisted as a JSON file. Only cookies scoped
// to "/" are kept, matching what the page itself can read.
type CookieFile struct {
	mu      sync.RWMutex
	path    string
	cookies map[string]string
}

// cookieFile is the JSON structure stored on disk
type cookieFile struct {
	Cookies map[string]string `json:"cookies"`
}

// NewCookieFile opens (or prepares) a cookie file.
// If path is empty, defaults to ~/.config/<appName>/cookies.json
func NewCookieFile(path string, appName string) (*CookieFile, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "fireauth"
		}
		path = filepath.Join(configDir, appName, "cookies.json")
	}

	f := &CookieFile{path: path, cookies: make(map[string]string)}
	if err := f.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return f, nil
}

func (f *CookieFile) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	var file cookieFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse cookie file: %w", err)
	}
	if file.Cookies != nil {
		f.cookies = file.Cookies
	}
	return nil
}

// RawCookie returns the jar as a document.cookie style string, sorted by name.
func (f *CookieFile) RawCookie() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.cookies))
	for name := range f.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+f.cookies[name])
	}
	return strings.Join(parts, "; ")
}

// SetCookie stores c and writes the file. Errors are reported on stderr since
// a cookie jar cannot fail its caller.
func (f *CookieFile) SetCookie(c *http.Cookie) {
	if c.Path != "" && c.Path != "/" {
		return
	}
	f.mu.Lock()
	f.cookies[c.Name] = c.Value
	f.mu.Unlock()

	if err := f.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "fireauth: failed to save cookies: %v\n", err)
	}
}

// Save persists the jar to disk
func (f *CookieFile) Save() error {
	f.mu.RLock()
	data, err := json.MarshalIndent(cookieFile{Cookies: f.cookies}, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to serialize cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// Owner read/write only: the file holds a session token
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	return nil
}

// Path returns the path to the cookie file
func (f *CookieFile) Path() string {
	return f.path
}
