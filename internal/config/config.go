// Package config loads and validates the construction-time configuration
// described in the adapter's data model: credentials, the backup root URL,
// chunked-upload tuning, and per-phase timeouts.
package config

import (
	"time"

	"github.com/cirrusbackup/msgraph-backend/internal/graph"
)

// Config is the immutable, construction-time configuration from §3 of the
// specification, loadable from a TOML file via Load or built directly via
// DefaultConfig.
type Config struct {
	AuthID      string `toml:"auth-id"`
	ProtocolKey string `toml:"protocol-key"`
	RootURL     string `toml:"root-url"`

	FragmentSize       int64         `toml:"-"`
	FragmentRetryCount int           `toml:"fragment-retry-count"`
	FragmentRetryDelay time.Duration `toml:"-"`

	ShortTimeout     time.Duration `toml:"-"`
	ListTimeout      time.Duration `toml:"-"`
	ReadWriteTimeout time.Duration `toml:"-"`

	// Raw string forms as they appear in the TOML file / configuration
	// surface (§6); Load parses these into the typed fields above.
	FragmentSizeRaw       string `toml:"fragment-size"`
	FragmentRetryDelayRaw string `toml:"fragment-retry-delay"`
	ShortTimeoutRaw       string `toml:"short-timeout"`
	ListTimeoutRaw        string `toml:"list-timeout"`
	ReadWriteTimeoutRaw   string `toml:"read-write-timeout"`
}

// Timeouts adapts the config's timeouts into the shape graph.NewBackend
// expects.
func (c *Config) Timeouts() graph.Timeouts {
	return graph.Timeouts{
		Short:     c.ShortTimeout,
		List:      c.ListTimeout,
		ReadWrite: c.ReadWriteTimeout,
	}
}

// BackendConfig adapts the config's upload tuning into graph.BackendConfig.
func (c *Config) BackendConfig() graph.BackendConfig {
	return graph.BackendConfig{
		FragmentSize:       c.FragmentSize,
		FragmentRetryCount: c.FragmentRetryCount,
		FragmentRetryDelay: c.FragmentRetryDelay,
		Timeouts:           c.Timeouts(),
	}
}
