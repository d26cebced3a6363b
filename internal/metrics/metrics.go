// Package metrics provides lightweight counters for tracking runtime
// statistics of the controller server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics across all sessions.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	sessionsActive  atomic.Int64
	sessionsTotal   atomic.Int64
	statesTotal     atomic.Int64
	decodeErrors    atomic.Int64
	imagesFetched   atomic.Int64
	imageFailures   atomic.Int64
	commandsSent    atomic.Int64
	commandsDropped atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the current number of open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Frame metrics ────────────────────────────────────────────────────

// StateReceived records one successfully decoded state frame.
func (c *Collector) StateReceived() {
	if c == nil {
		return
	}
	c.statesTotal.Add(1)
}

// DecodeErrorSkipped records a malformed state line that was skipped.
func (c *Collector) DecodeErrorSkipped() {
	if c == nil {
		return
	}
	c.decodeErrors.Add(1)
}

// ImageFetched records a successful image frame round trip.
func (c *Collector) ImageFetched() {
	if c == nil {
		return
	}
	c.imagesFetched.Add(1)
}

// ImageFailed records an aborted image fetch.
func (c *Collector) ImageFailed() {
	if c == nil {
		return
	}
	c.imageFailures.Add(1)
}

// CommandSent records one transmitted command frame.
func (c *Collector) CommandSent() {
	if c == nil {
		return
	}
	c.commandsSent.Add(1)
}

// CommandDropped records a pending command overwritten before the
// sender could transmit it (latest-wins slot semantics).
func (c *Collector) CommandDropped() {
	if c == nil {
		return
	}
	c.commandsDropped.Add(1)
}

// CommandsSent returns the number of transmitted command frames.
func (c *Collector) CommandsSent() int64 {
	if c == nil {
		return 0
	}
	return c.commandsSent.Load()
}

// CommandsDropped returns the number of overwritten pending commands.
func (c *Collector) CommandsDropped() int64 {
	if c == nil {
		return 0
	}
	return c.commandsDropped.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError stores the message and timestamp of the latest failure.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	StatesTotal      int64  `json:"states_total"`
	DecodeErrors     int64  `json:"decode_errors"`
	ImagesFetched    int64  `json:"images_fetched"`
	ImageFailures    int64  `json:"image_failures"`
	CommandsSent     int64  `json:"commands_sent"`
	CommandsDropped  int64  `json:"commands_dropped"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:  c.sessionsActive.Load(),
		SessionsTotal:   c.sessionsTotal.Load(),
		StatesTotal:     c.statesTotal.Load(),
		DecodeErrors:    c.decodeErrors.Load(),
		ImagesFetched:   c.imagesFetched.Load(),
		ImageFailures:   c.imageFailures.Load(),
		CommandsSent:    c.commandsSent.Load(),
		CommandsDropped: c.commandsDropped.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
