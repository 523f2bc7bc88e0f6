package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoadParsesRawFields(t *testing.T) {
	path := writeConfig(t, `
auth-id = "user@example.com"
root-url = "onedrive:///Backups/host1"
fragment-size = "5MiB"
fragment-retry-delay = "1500"
short-timeout = "15s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.AuthID)
	assert.Equal(t, "msgraph", cfg.ProtocolKey)
	assert.Equal(t, int64(5*1024*1024), cfg.FragmentSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.FragmentRetryDelay)
	assert.Equal(t, 15*time.Second, cfg.ShortTimeout)
	assert.Equal(t, DefaultConfig().ListTimeout, cfg.ListTimeout)
}

func TestLoadRequiresAuthID(t *testing.T) {
	path := writeConfig(t, `root-url = "onedrive:///Backups/host1"`)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingAuthID)
}

func TestLoadRejectsMalformedFragmentSize(t *testing.T) {
	path := writeConfig(t, `
auth-id = "user@example.com"
fragment-size = "not-a-size"
`)

	_, err := Load(path)
	assert.Error(t, err)
}
