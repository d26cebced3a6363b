package session

import "sync"

// PendingCommand is a single-slot mailbox between the receiver loop
// (producer) and the sender loop (consumer).
//
// The slot holds at most one command.  A new write silently replaces
// an unconsumed value — latest wins.  This lossy handoff is the
// intended policy: the game only ever wants the freshest decision, and
// a stale command is worse than a dropped one.  Drops are counted so
// the loss stays observable.
type PendingCommand struct {
	mu    sync.Mutex
	cmd   string
	full  bool
	drops uint64
}

// Put stores cmd, replacing any unconsumed value.  It reports whether
// a previous value was dropped.
func (p *PendingCommand) Put(cmd string) (dropped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped = p.full
	if dropped {
		p.drops++
	}
	p.cmd = cmd
	p.full = true
	return dropped
}

// Take removes and returns the pending command, if any.
func (p *PendingCommand) Take() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.full {
		return "", false
	}
	cmd := p.cmd
	p.cmd = ""
	p.full = false
	return cmd, true
}

// Drops returns the lifetime count of overwritten commands.
func (p *PendingCommand) Drops() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drops
}
