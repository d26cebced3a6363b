package core

import (
	"context"
	"fmt"
	"net"

	"aictl/config"
	"aictl/internal/decision"
	"aictl/internal/metrics"
	"aictl/internal/session"
	"aictl/util"
)

// ServeMode accepts connections from the game process and runs one
// session per connection.
//
// Sessions are handled serially by default: one connection finishes
// before the next accept, matching a game that connects one AI peer at
// a time.  Concurrent=true spawns a goroutine per connection instead;
// sessions share nothing, so this is safe, but it is an explicit
// deviation from the serial default.
type ServeMode struct {
	Address    string // "host:port"
	Concurrent bool
	Config     *config.Config
	Decider    decision.Decider
	Logger     *util.Logger
	Metrics    *metrics.Collector
}

// Run binds the listener and accepts until the context is cancelled.
// Cancellation closes the listener, which unblocks Accept promptly;
// active sessions observe the same context and wind down within one
// poll interval.
func (m *ServeMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	defer ln.Close()

	m.Logger.Info("listening on %s (tcp)", ln.Addr())

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				m.Logger.Info("server shut down")
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		sess := session.New(conn, m.Config, m.Decider, m.Logger, m.Metrics)
		if m.Concurrent {
			go sess.Run(ctx)
		} else {
			sess.Run(ctx)
		}
	}
}
