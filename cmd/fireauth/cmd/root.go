package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cfg = &Config{}

var rootCmd = &cobra.Command{
	Use:   "fireauth",
	Short: "Email/password sessions and shared task boards",
	Long: `fireauth serves a login page whose session lives in a "token" cookie
backed by an identity provider (Firebase or a local account store), plus the
task boards that signed in users share. The session commands drive the same
flow from a terminal, keeping the cookie in a file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := ParseEnv(cfg); err != nil {
			return err
		}
		applyFlags(cmd)
		cfg.EnsureDefaults()
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var flagValues struct {
	provider   string
	store      string
	dataDir    string
	cookieFile string
	logLevel   string
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagValues.provider, "provider", "", "Identity provider: local or firebase (env FIREAUTH_PROVIDER)")
	flags.StringVar(&flagValues.store, "store", "", "Storage backend: fs, datastore or postgres (env FIREAUTH_STORE)")
	flags.StringVar(&flagValues.dataDir, "data-dir", "", "Directory for the fs store and local secrets (env FIREAUTH_DATA_DIR)")
	flags.StringVar(&flagValues.cookieFile, "cookie-file", "", "Cookie jar used by the session commands (env FIREAUTH_COOKIE_FILE)")
	flags.StringVar(&flagValues.logLevel, "log-level", "", "debug, info, warn or error (env FIREAUTH_LOG_LEVEL)")
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = flagValues.provider
	}
	if flags.Changed("store") {
		cfg.Store = flagValues.store
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = flagValues.dataDir
	}
	if flags.Changed("cookie-file") {
		cfg.CookieFile = flagValues.cookieFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagValues.logLevel
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		fmt.Fprintf(os.Stderr, "unknown log level %q, using info\n", level)
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
