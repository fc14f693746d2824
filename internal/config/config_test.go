package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBackend, cfg.Backend)
	assert.Equal(t, DefaultAppKey, cfg.AppKey)
	assert.Equal(t, DefaultParallelUploads, cfg.Transfers.ParallelUploads)

	logout, err := cfg.LogoutTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, logout)

	op, err := cfg.OperationTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), op)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
backend = "megasdk"
app_key = "myapp"

[credentials]
email = "user@example.com"

[timeouts]
operation = "45s"
logout = "5s"

[transfers]
parallel_uploads = 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "megasdk", cfg.Backend)
	assert.Equal(t, "myapp", cfg.AppKey)
	assert.Equal(t, "user@example.com", cfg.Credentials.Email)
	assert.Equal(t, 8, cfg.Transfers.ParallelUploads)

	op, err := cfg.OperationTimeout()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, op)

	logout, err := cfg.LogoutTimeout()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, logout)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
backend = "sim"
paralel_uploads = 8
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paralel_uploads")
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
[timeouts]
operation = "soon"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeouts.operation")
}

func TestLoad_NegativeDuration(t *testing.T) {
	path := writeConfig(t, `
[timeouts]
logout = "-5s"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_ParallelUploadsRange(t *testing.T) {
	path := writeConfig(t, `
[transfers]
parallel_uploads = 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallel_uploads")
}

func TestValidate_EmptyBackend(t *testing.T) {
	cfg := defaults()
	cfg.Backend = ""

	assert.Error(t, cfg.Validate())
}
