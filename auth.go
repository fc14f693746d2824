package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/openmega/megawait/internal/credstore"
	"github.com/openmega/megawait/internal/mega"
	"github.com/openmega/megawait/internal/native"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and store the password in the OS keyring",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored password",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the configured account",
		RunE:  runWhoami,
	}
}

func newDfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "df",
		Short: "Display storage usage",
		RunE:  runDf,
	}
}

// readPassword prompts on a terminal (no echo) or reads one line from a
// piped stdin. MEGAWAIT_PASSWORD bypasses the prompt entirely.
func readPassword() (string, error) {
	if pw := os.Getenv("MEGAWAIT_PASSWORD"); pw != "" {
		return pw, nil
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprint(os.Stderr, "Password: ")

		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	email := cfg.Credentials.Email
	if email == "" {
		return fmt.Errorf("no account email — pass --email or set credentials.email in the config")
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	creds := mega.Credentials{Email: email, Password: password, TOTP: os.Getenv("MEGAWAIT_TOTP")}

	opts, err := sessionOptions(logger)
	if err != nil {
		return err
	}

	api, err := native.Open(cfg.Backend, cfg.AppKey)
	if err != nil {
		return err
	}

	// Verify before storing: open a session and close it again.
	err = mega.WithSession(context.Background(), api, creds, func(*mega.Session) error {
		return nil
	}, opts...)
	if err != nil {
		return err
	}

	store, err := credstore.Open()
	if err != nil {
		return err
	}

	if err := store.Save(email, password); err != nil {
		return err
	}

	logger.Info("login verified", "email", email)
	statusf("Logged in as %s.\n", email)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	email := cfg.Credentials.Email
	if email == "" {
		return fmt.Errorf("no account email configured")
	}

	store, err := credstore.Open()
	if err != nil {
		return err
	}

	if err := store.Delete(email); err != nil {
		return err
	}

	statusf("Logged out %s.\n", email)

	return nil
}

// dfOutput is the JSON schema for `df --json`.
type dfOutput struct {
	Email        string `json:"email"`
	StorageUsed  int64  `json:"storage_used"`
	StorageMax   int64  `json:"storage_max"`
	TransferUsed int64  `json:"transfer_used"`
	TransferMax  int64  `json:"transfer_max"`
	ProLevel     int    `json:"pro_level"`
}

func runWhoami(_ *cobra.Command, _ []string) error {
	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		details, err := s.AccountDetails(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(dfOutput{
				Email:        details.Email,
				StorageUsed:  details.StorageUsed,
				StorageMax:   details.StorageMax,
				TransferUsed: details.TransferUsed,
				TransferMax:  details.TransferMax,
				ProLevel:     details.ProLevel,
			})
		}

		fmt.Printf("%s (pro level %d)\n", details.Email, details.ProLevel)

		return nil
	})
}

func runDf(_ *cobra.Command, _ []string) error {
	return withSession(context.Background(), func(ctx context.Context, s *mega.Session) error {
		details, err := s.AccountDetails(ctx)
		if err != nil {
			return err
		}

		if flagJSON {
			return json.NewEncoder(os.Stdout).Encode(dfOutput{
				Email:        details.Email,
				StorageUsed:  details.StorageUsed,
				StorageMax:   details.StorageMax,
				TransferUsed: details.TransferUsed,
				TransferMax:  details.TransferMax,
				ProLevel:     details.ProLevel,
			})
		}

		pct := 0.0
		if details.StorageMax > 0 {
			pct = 100 * float64(details.StorageUsed) / float64(details.StorageMax)
		}

		fmt.Printf("Storage: %s of %s (%.1f%%)\n",
			formatSize(details.StorageUsed), formatSize(details.StorageMax), pct)
		fmt.Printf("Transfer: %s of %s\n",
			formatSize(details.TransferUsed), formatSize(details.TransferMax))

		return nil
	})
}
