package protocol

import (
	"fmt"
	"strings"

	aierr "aictl/internal/errors"
)

// Action verbs recognized by the game.
const (
	ActionLeft   = "LEFT"
	ActionRight  = "RIGHT"
	ActionJump   = "JUMP"
	ActionPickup = "PICKUP"
	ActionDrop   = "DROP"
	ActionShoot  = "SHOOT"
)

// CommandBuilder accumulates action tokens and serializes them as one
// command frame.  Movement amounts are validated when the action is
// added, so an out-of-range amount can never reach the wire.
//
// The zero value is ready to use.
type CommandBuilder struct {
	tokens []string
}

// Left adds a LEFT movement.  amount must be in [0.00, 1.00].
func (b *CommandBuilder) Left(amount float64) error {
	return b.move(ActionLeft, amount)
}

// Right adds a RIGHT movement.  amount must be in [0.00, 1.00].
func (b *CommandBuilder) Right(amount float64) error {
	return b.move(ActionRight, amount)
}

// Jump adds a JUMP.  amount must be in [0.00, 1.00].
func (b *CommandBuilder) Jump(amount float64) error {
	return b.move(ActionJump, amount)
}

// Pickup adds a PICKUP action.
func (b *CommandBuilder) Pickup() { b.tokens = append(b.tokens, ActionPickup) }

// Drop adds a DROP action.
func (b *CommandBuilder) Drop() { b.tokens = append(b.tokens, ActionDrop) }

// Shoot adds a SHOOT action.
func (b *CommandBuilder) Shoot() { b.tokens = append(b.tokens, ActionShoot) }

// Clear discards any previously added actions.
func (b *CommandBuilder) Clear() { b.tokens = b.tokens[:0] }

// Empty reports whether no actions have been added.
func (b *CommandBuilder) Empty() bool { return len(b.tokens) == 0 }

// Build serializes the added actions as a single command frame:
// tokens joined by ";", terminated by "\n".
func (b *CommandBuilder) Build() string {
	return strings.Join(b.tokens, ";") + "\n"
}

func (b *CommandBuilder) move(verb string, amount float64) error {
	if amount < 0.0 || amount > 1.0 {
		return fmt.Errorf("%s %.2f: %w", verb, amount, aierr.ErrAmountRange)
	}
	b.tokens = append(b.tokens, fmt.Sprintf("%s:%.2f", verb, amount))
	return nil
}
