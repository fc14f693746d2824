package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmega/megawait/internal/config"
	"github.com/openmega/megawait/internal/credstore"
	"github.com/openmega/megawait/internal/mega"
	"github.com/openmega/megawait/internal/native"

	// Registers the in-memory "sim" backend. The cgo binding registers
	// "megasdk" the same way when it is linked in.
	_ "github.com/openmega/megawait/internal/native/sim"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagBackend    string
	flagEmail      string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// cfg holds the configuration loaded by PersistentPreRunE, available to all
// subcommands.
var cfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "megawait",
		Short:   "MEGA cloud storage CLI",
		Long:    "An awaitable MEGA client: every command opens a session, runs its operations against the native SDK, and tears the session down.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "native backend (overrides config)")
	cmd.PersistentFlags().StringVar(&flagEmail, "email", "", "account email (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newDfCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newMkdirCmd())

	return cmd
}

// loadConfig reads the TOML config (default path unless --config is set)
// and applies flag overrides.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}

	if flagBackend != "" {
		loaded.Backend = flagBackend
	}

	if flagEmail != "" {
		loaded.Credentials.Email = flagEmail
	}

	cfg = loaded

	return nil
}

// buildLogger creates an slog.Logger honoring --verbose and --quiet.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveCredentials assembles session credentials: email from config or
// --email, password from the keyring or MEGAWAIT_PASSWORD.
func resolveCredentials() (mega.Credentials, error) {
	email := cfg.Credentials.Email
	if email == "" {
		return mega.Credentials{}, fmt.Errorf("no account configured — run 'megawait login' or set credentials.email")
	}

	password := os.Getenv("MEGAWAIT_PASSWORD")
	if password == "" {
		store, err := credstore.Open()
		if err != nil {
			return mega.Credentials{}, err
		}

		password, err = store.Load(email)
		if err != nil {
			return mega.Credentials{}, fmt.Errorf("no stored password for %s — run 'megawait login' first", email)
		}
	}

	return mega.Credentials{
		Email:    email,
		Password: password,
		TOTP:     os.Getenv("MEGAWAIT_TOTP"),
	}, nil
}

// sessionOptions converts config timeouts into session options.
func sessionOptions(logger *slog.Logger) ([]mega.Option, error) {
	opts := []mega.Option{mega.WithLogger(logger)}

	opTimeout, err := cfg.OperationTimeout()
	if err != nil {
		return nil, err
	}

	if opTimeout > 0 {
		opts = append(opts, mega.WithOperationTimeout(opTimeout))
	}

	logoutTimeout, err := cfg.LogoutTimeout()
	if err != nil {
		return nil, err
	}

	if logoutTimeout > 0 {
		opts = append(opts, mega.WithLogoutTimeout(logoutTimeout))
	}

	return opts, nil
}

// withSession acquires a native handle, opens a session with the resolved
// credentials, runs fn, and closes the session on every exit path.
func withSession(ctx context.Context, fn func(context.Context, *mega.Session) error) error {
	logger := buildLogger()

	creds, err := resolveCredentials()
	if err != nil {
		return err
	}

	opts, err := sessionOptions(logger)
	if err != nil {
		return err
	}

	api, err := native.Open(cfg.Backend, cfg.AppKey)
	if err != nil {
		return err
	}

	return mega.WithSession(ctx, api, creds, func(s *mega.Session) error {
		return fn(ctx, s)
	}, opts...)
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
