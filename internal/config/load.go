package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML configuration file, applies defaults to any unset
// field, parses the raw duration/size strings, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %q: %w", path, err)
	}

	if err := cfg.applyRawFields(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyRawFields parses the TOML-surfaced string fields (sizes and
// durations) into their typed counterparts, leaving already-set typed
// defaults untouched when the raw field was absent from the file.
func (c *Config) applyRawFields() error {
	if c.FragmentSizeRaw != "" {
		size, err := parseSize(c.FragmentSizeRaw)
		if err != nil {
			return fmt.Errorf("config: fragment-size: %w", err)
		}

		c.FragmentSize = size
	}

	if c.FragmentRetryDelayRaw != "" {
		delay, err := parseMillis(c.FragmentRetryDelayRaw)
		if err != nil {
			return fmt.Errorf("config: fragment-retry-delay: %w", err)
		}

		c.FragmentRetryDelay = delay
	}

	for _, f := range []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{c.ShortTimeoutRaw, &c.ShortTimeout, "short-timeout"},
		{c.ListTimeoutRaw, &c.ListTimeout, "list-timeout"},
		{c.ReadWriteTimeoutRaw, &c.ReadWriteTimeout, "read-write-timeout"},
	} {
		if f.raw == "" {
			continue
		}

		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.key, err)
		}

		*f.dst = d
	}

	return nil
}

// parseMillis accepts either a bare integer (milliseconds, per §6) or a Go
// duration string.
func parseMillis(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	return time.Duration(n) * time.Millisecond, nil
}
