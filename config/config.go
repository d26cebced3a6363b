// Package config defines the runtime configuration for aictl and the
// overlay logic that merges defaults, config file, environment, and
// CLI flags.
package config

import (
	"time"

	aierr "aictl/internal/errors"
)

// Config holds every tuneable for one aictl server run.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Host string // bind address, loopback by default
	Port int    // listen port (positional CLI argument)

	// ── Session timing ───────────────────────────────────────────────
	ReadTimeout    time.Duration // per-read deadline on the state socket
	WriteTimeout   time.Duration // deadline for one outbound frame
	SendCadence    time.Duration // sender loop transmit interval
	CadenceTick    time.Duration // sub-interval at which the sender checks for stop
	ImageTimeout   time.Duration // deadline for one complete image fetch
	DecisionBudget time.Duration // wall-clock budget for one decision

	// ── Image handling ───────────────────────────────────────────────
	FetchImages   bool   // request a screen dump after each state frame
	MaxImageBytes uint32 // reject image payloads larger than this
	DumpDir       string // write fetched frames as PNG here ("" = off)

	// ── Behaviour ────────────────────────────────────────────────────
	Concurrent bool  // handle sessions in parallel instead of serially
	Seed       int64 // RNG seed for the default decider (0 = time-based)

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// Default returns a Config populated with the defaults from
// defaults.go.
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		ReadTimeout:    DefaultReadTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		SendCadence:    DefaultSendCadence,
		CadenceTick:    DefaultCadenceTick,
		ImageTimeout:   DefaultImageTimeout,
		DecisionBudget: DefaultDecisionBudget,
		FetchImages:    true,
		MaxImageBytes:  DefaultMaxImageBytes,
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &aierr.ConfigError{
			Field: "port", Value: c.Port,
			Message: "listen port must be in 1-65535",
			Hint:    "pass the port the game's player config assigns to the AI peer",
		}
	}
	if c.Host == "" {
		return &aierr.ConfigError{
			Field: "host", Message: "bind address is required",
		}
	}
	if c.ReadTimeout <= 0 {
		return &aierr.ConfigError{
			Field: "read-timeout", Value: c.ReadTimeout,
			Message: "read timeout must be positive",
		}
	}
	if c.WriteTimeout <= 0 {
		return &aierr.ConfigError{
			Field: "write-timeout", Value: c.WriteTimeout,
			Message: "write timeout must be positive",
		}
	}
	if c.SendCadence <= 0 {
		return &aierr.ConfigError{
			Field: "cadence", Value: c.SendCadence,
			Message: "send cadence must be positive",
		}
	}
	if c.CadenceTick <= 0 || c.CadenceTick > c.SendCadence {
		return &aierr.ConfigError{
			Field: "cadence-tick", Value: c.CadenceTick,
			Message: "cadence tick must be positive and no longer than the cadence",
			Hint:    "the tick bounds how quickly the sender notices a stop signal",
		}
	}
	if c.ImageTimeout <= 0 {
		return &aierr.ConfigError{
			Field: "image-timeout", Value: c.ImageTimeout,
			Message: "image timeout must be positive",
		}
	}
	if c.DecisionBudget <= 0 || c.DecisionBudget >= c.SendCadence {
		return &aierr.ConfigError{
			Field: "decision-budget", Value: c.DecisionBudget,
			Message: "decision budget must be positive and shorter than the send cadence",
			Hint:    "a slow decider would otherwise starve command delivery",
		}
	}
	if c.MaxImageBytes == 0 {
		return &aierr.ConfigError{
			Field: "max-image-bytes", Value: c.MaxImageBytes,
			Message: "image size cap must be positive",
		}
	}
	return nil
}
