package decision

import (
	"context"
	"image"
	"math/rand"
	"sync"
	"time"

	"aictl/internal/protocol"
)

// Random picks one uniformly random action per tick.  It is the
// default strategy, useful for exercising the channel end to end
// before a real image analyzer exists.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random decider.  seed 0 selects a time-based
// seed.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Decide ignores the image and state and returns one random action at
// full strength.
func (r *Random) Decide(_ context.Context, _ image.Image, _ protocol.GameState) (string, error) {
	r.mu.Lock()
	n := r.rng.Intn(6)
	r.mu.Unlock()

	var b protocol.CommandBuilder
	switch n {
	case 0:
		_ = b.Left(1.0) // 1.0 is always in range
	case 1:
		_ = b.Right(1.0)
	case 2:
		_ = b.Jump(1.0)
	case 3:
		b.Pickup()
	case 4:
		b.Drop()
	default:
		b.Shoot()
	}
	return b.Build(), nil
}
