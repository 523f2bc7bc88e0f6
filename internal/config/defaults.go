package config

import "time"

// DefaultConfig returns the configuration defaults from §3: fragment size
// 10 MiB, 5 retries, 1000 ms base backoff, and the three per-phase
// timeouts.
func DefaultConfig() Config {
	return Config{
		ProtocolKey:        "msgraph",
		FragmentSize:       10 * 1024 * 1024,
		FragmentRetryCount: 5,
		FragmentRetryDelay: time.Second,
		ShortTimeout:       30 * time.Second,
		ListTimeout:        60 * time.Second,
		ReadWriteTimeout:   2 * time.Minute,
	}
}
