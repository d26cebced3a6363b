// Package core is the orchestration layer.  It composes the listener,
// the per-connection session engine, and the decision strategy into a
// complete runnable server.
package core

import "context"

// Mode represents a complete operational mode.  It owns its full
// lifecycle from binding the listener to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
