package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost binds the listener to loopback only; the game runs
	// on the same machine.
	DefaultHost = "127.0.0.1"

	// DefaultReadTimeout bounds every state-socket read so the
	// receiver observes stop signals within one poll interval.
	DefaultReadTimeout = 1 * time.Second

	// DefaultWriteTimeout bounds one outbound frame write.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultSendCadence is the sender loop's transmit interval.
	DefaultSendCadence = 500 * time.Millisecond

	// DefaultCadenceTick is the granularity at which the sender checks
	// its stop signal between transmissions.
	DefaultCadenceTick = 50 * time.Millisecond

	// DefaultImageTimeout bounds one full image round trip (request,
	// length prefix, payload).
	DefaultImageTimeout = 2 * time.Second

	// DefaultDecisionBudget caps one decider invocation.  Must stay
	// below the send cadence so decisions cannot starve delivery.
	DefaultDecisionBudget = 250 * time.Millisecond

	// DefaultMaxImageBytes rejects image length prefixes beyond any
	// plausible screen dump (16 MiB).
	DefaultMaxImageBytes = 16 << 20
)
