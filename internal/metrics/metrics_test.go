package metrics

import (
	"encoding/json"
	"testing"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionOpened()
	c.SessionOpened()
	if c.ActiveSessions() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total = %d, want 2", c.TotalSessions())
	}

	c.SessionClosed()
	if c.ActiveSessions() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveSessions())
	}
	if c.TotalSessions() != 2 {
		t.Errorf("total should remain 2, got %d", c.TotalSessions())
	}
}

func TestCollector_Frames(t *testing.T) {
	c := New()
	c.StateReceived()
	c.StateReceived()
	c.DecodeErrorSkipped()
	c.ImageFetched()
	c.ImageFailed()
	c.CommandSent()
	c.CommandDropped()

	s := c.Snapshot()
	if s.StatesTotal != 2 {
		t.Errorf("states = %d, want 2", s.StatesTotal)
	}
	if s.DecodeErrors != 1 || s.ImagesFetched != 1 || s.ImageFailures != 1 {
		t.Errorf("frame counters wrong: %+v", s)
	}
	if s.CommandsSent != 1 || s.CommandsDropped != 1 {
		t.Errorf("command counters wrong: %+v", s)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// None of these may panic.
	c.SessionOpened()
	c.SessionClosed()
	c.StateReceived()
	c.DecodeErrorSkipped()
	c.ImageFetched()
	c.ImageFailed()
	c.CommandSent()
	c.CommandDropped()
	c.RecordError("boom")

	if c.ActiveSessions() != 0 || c.CommandsSent() != 0 {
		t.Error("nil collector should report zeros")
	}
	if s := c.Snapshot(); s.SessionsTotal != 0 {
		t.Error("nil collector snapshot should be zero")
	}
}

func TestCollector_JSON(t *testing.T) {
	c := New()
	c.SessionOpened()
	c.RecordError("socket reset")

	var s Snapshot
	if err := json.Unmarshal([]byte(c.JSON()), &s); err != nil {
		t.Fatalf("JSON output not parseable: %v", err)
	}
	if s.SessionsActive != 1 {
		t.Errorf("sessions_active = %d, want 1", s.SessionsActive)
	}
	if s.LastErrorMessage != "socket reset" {
		t.Errorf("last_error_message = %q", s.LastErrorMessage)
	}
}
