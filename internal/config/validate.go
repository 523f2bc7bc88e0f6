package config

import (
	"errors"

	"github.com/cirrusbackup/msgraph-backend/internal/graph"
)

// ErrMissingAuthID is returned when no auth-id credential was provided.
var ErrMissingAuthID = errors.New("config: auth-id is required")

// Validate applies the fragment-size clamp/align rule from §3 and rejects
// a missing auth-id. It also backfills any zero-valued timeout/retry field
// with the package default, so a partially-specified Config (e.g. built by
// hand in a test) still behaves sensibly.
func (c *Config) Validate() error {
	if c.AuthID == "" {
		return ErrMissingAuthID
	}

	if c.ProtocolKey == "" {
		c.ProtocolKey = "msgraph"
	}

	c.FragmentSize = graph.ClampFragmentSize(c.FragmentSize)

	defaults := DefaultConfig()

	if c.FragmentRetryCount <= 0 {
		c.FragmentRetryCount = defaults.FragmentRetryCount
	}

	if c.FragmentRetryDelay <= 0 {
		c.FragmentRetryDelay = defaults.FragmentRetryDelay
	}

	if c.ShortTimeout <= 0 {
		c.ShortTimeout = defaults.ShortTimeout
	}

	if c.ListTimeout <= 0 {
		c.ListTimeout = defaults.ListTimeout
	}

	if c.ReadWriteTimeout <= 0 {
		c.ReadWriteTimeout = defaults.ReadWriteTimeout
	}

	return nil
}
