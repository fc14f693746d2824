// Package config implements TOML configuration loading and validation for
// megawait. A missing config file is not an error — every field has a
// usable default — but an unknown key or a malformed duration is, so typos
// fail loudly instead of being silently ignored.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level structure parsed from the TOML file.
type Config struct {
	// Backend selects the registered native driver. "sim" is the in-memory
	// simulator; the cgo binding registers "megasdk".
	Backend string `toml:"backend"`

	// AppKey is the application key passed to the native client.
	AppKey string `toml:"app_key"`

	Credentials CredentialsConfig `toml:"credentials"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	Transfers   TransfersConfig   `toml:"transfers"`
}

// CredentialsConfig names the account. The password is never stored in the
// config file; it comes from the OS keyring or MEGAWAIT_PASSWORD.
type CredentialsConfig struct {
	Email string `toml:"email"`
}

// TimeoutsConfig holds duration strings ("30s", "2m").
type TimeoutsConfig struct {
	// Operation bounds every facade call. Empty or "0s" means no timeout.
	Operation string `toml:"operation"`
	// Logout bounds how long session close waits for the native logout.
	Logout string `toml:"logout"`
}

// TransfersConfig controls CLI-side transfer parallelism.
type TransfersConfig struct {
	ParallelUploads int `toml:"parallel_uploads"`
}

// Defaults applied before file values.
const (
	DefaultBackend         = "sim"
	DefaultAppKey          = "megawait"
	DefaultLogoutTimeout   = "10s"
	DefaultParallelUploads = 4
)

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: resolving user config dir: %w", err)
	}

	return filepath.Join(dir, "megawait", "config.toml"), nil
}

func defaults() *Config {
	return &Config{
		Backend: DefaultBackend,
		AppKey:  DefaultAppKey,
		Timeouts: TimeoutsConfig{
			Logout: DefaultLogoutTimeout,
		},
		Transfers: TransfersConfig{
			ParallelUploads: DefaultParallelUploads,
		},
	}
}

// Load reads the config file at path, applying defaults for absent fields.
// A missing file yields pure defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks durations and numeric ranges.
func (c *Config) Validate() error {
	if _, err := c.OperationTimeout(); err != nil {
		return err
	}

	if _, err := c.LogoutTimeout(); err != nil {
		return err
	}

	if c.Transfers.ParallelUploads < 1 {
		return fmt.Errorf("transfers.parallel_uploads must be at least 1, got %d", c.Transfers.ParallelUploads)
	}

	if c.Backend == "" {
		return fmt.Errorf("backend must not be empty")
	}

	return nil
}

// OperationTimeout parses the operation timeout; zero means none.
func (c *Config) OperationTimeout() (time.Duration, error) {
	return parseDuration("timeouts.operation", c.Timeouts.Operation)
}

// LogoutTimeout parses the logout timeout.
func (c *Config) LogoutTimeout() (time.Duration, error) {
	return parseDuration("timeouts.logout", c.Timeouts.Logout)
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, s)
	}

	if d < 0 {
		return 0, fmt.Errorf("%s: duration must not be negative", key)
	}

	return d, nil
}
