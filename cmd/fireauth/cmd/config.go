package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/caarlos0/env/v11"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	fa "github.com/panyam/fireauth"
	"github.com/panyam/fireauth/stores"
	gaestore "github.com/panyam/fireauth/stores/gae"
	gormstore "github.com/panyam/fireauth/stores/gorm"
)

// Config is read from FIREAUTH_* environment variables; flags override it.
type Config struct {
	Provider       string `env:"FIREAUTH_PROVIDER" envDefault:"local"`
	FirebaseAPIKey string `env:"FIREAUTH_FIREBASE_API_KEY"`

	// Signs LocalProvider tokens. When empty a secret is generated once and
	// kept in DataDir so sessions survive restarts.
	JWTSecret string `env:"FIREAUTH_JWT_SECRET"`

	Store              string `env:"FIREAUTH_STORE" envDefault:"fs"`
	DataDir            string `env:"FIREAUTH_DATA_DIR" envDefault:"./data"`
	DatastoreProject   string `env:"FIREAUTH_DATASTORE_PROJECT"`
	DatastoreNamespace string `env:"FIREAUTH_DATASTORE_NAMESPACE"`
	PostgresDSN        string `env:"FIREAUTH_POSTGRES_DSN"`

	Addr          string        `env:"FIREAUTH_ADDR" envDefault:":8080"`
	GRPCAddr      string        `env:"FIREAUTH_GRPC_ADDR"`
	ActionTimeout time.Duration `env:"FIREAUTH_ACTION_TIMEOUT" envDefault:"30s"`

	CookieFile string `env:"FIREAUTH_COOKIE_FILE"`
	LogLevel   string `env:"FIREAUTH_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// EnsureDefaults fills values left empty by both env and flags.
func (c *Config) EnsureDefaults() {
	if c.Provider == "" {
		c.Provider = "local"
	}
	if c.Store == "" {
		c.Store = "fs"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = fa.DefaultActionTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// backend is the storage a command runs against.
type backend struct {
	Accounts fa.AccountStore
	Boards   fa.BoardStore
	Close    func()
}

func openBackend(ctx context.Context, c *Config) (*backend, error) {
	switch c.Store {
	case "fs":
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return &backend{
			Accounts: stores.NewFSAccountStore(c.DataDir),
			Boards:   stores.NewFSBoardStore(c.DataDir),
			Close:    func() {},
		}, nil
	case "datastore":
		client, err := datastore.NewClient(ctx, c.DatastoreProject)
		if err != nil {
			return nil, fmt.Errorf("failed to create datastore client: %w", err)
		}
		return &backend{
			Accounts: gaestore.NewAccountStore(client, c.DatastoreNamespace).WithContext(ctx),
			Boards:   gaestore.NewBoardStore(client, c.DatastoreNamespace).WithContext(ctx),
			Close:    func() { client.Close() },
		}, nil
	case "postgres":
		if c.PostgresDSN == "" {
			return nil, errors.New("FIREAUTH_POSTGRES_DSN is required for the postgres store")
		}
		db, err := gorm.Open(postgres.Open(c.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		return &backend{
			Accounts: gormstore.NewAccountStore(db),
			Boards:   gormstore.NewBoardStore(db),
			Close: func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want fs, datastore or postgres)", c.Store)
	}
}

func newProvider(ctx context.Context, c *Config, b *backend) (fa.IdentityProvider, error) {
	switch c.Provider {
	case "firebase":
		if c.FirebaseAPIKey == "" {
			return nil, errors.New("FIREAUTH_FIREBASE_API_KEY is required for the firebase provider")
		}
		provider, err := fa.NewFirebaseProvider(ctx, c.FirebaseAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create firebase provider: %w", err)
		}
		return provider, nil
	case "local":
		secret, err := jwtSecret(c)
		if err != nil {
			return nil, err
		}
		return fa.NewLocalProvider(b.Accounts, secret), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want local or firebase)", c.Provider)
	}
}

// jwtSecret returns the configured secret, or one generated on first use and
// stored under DataDir.
func jwtSecret(c *Config) (string, error) {
	if c.JWTSecret != "" {
		return c.JWTSecret, nil
	}
	path := filepath.Join(c.DataDir, "jwt_secret")
	if data, err := os.ReadFile(path); err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	secret, err := fa.GenerateSecureToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to store jwt secret: %w", err)
	}
	slog.Info("Generated local jwt secret", "path", path)
	return secret, nil
}
