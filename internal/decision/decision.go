// Package decision defines what the controller does with a screen dump
// once it has one.  A Decider maps the decoded frame and the latest
// game state to a command frame; the session engine stays independent
// of any concrete strategy.
package decision

import (
	"context"
	"image"

	"aictl/internal/protocol"
)

// Decider produces the next command from the latest screen dump and
// game state.  img may be nil when no frame is available.
//
// Implementations may be stateful or randomized but must return within
// the configured decision budget; a slower decider forfeits its tick.
// A returned error or a panic means "no command this tick" — neither
// ends the session.
type Decider interface {
	Decide(ctx context.Context, img image.Image, state protocol.GameState) (string, error)
}

// Func adapts a plain function to the Decider interface.
type Func func(ctx context.Context, img image.Image, state protocol.GameState) (string, error)

// Decide calls f.
func (f Func) Decide(ctx context.Context, img image.Image, state protocol.GameState) (string, error) {
	return f(ctx, img, state)
}
