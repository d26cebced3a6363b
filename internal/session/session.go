// Package session implements the per-connection engine: a receiver
// loop and a sender loop running concurrently over one socket, sharing
// a lock-guarded state snapshot and a single-slot pending command.
//
// Lifecycle: Active → Terminating → Closed, no cycles back.  Whichever
// loop first hits a terminal condition — game over, connection failure,
// or process shutdown — raises the session stop signal; the owner joins
// both loops and closes the socket exactly once.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"aictl/config"
	"aictl/internal/decision"
	aierr "aictl/internal/errors"
	"aictl/internal/metrics"
	"aictl/internal/protocol"
	"aictl/util"
)

// State is a session lifecycle phase.
type State int32

const (
	// StateActive means both loops are running and no stop condition
	// has been raised.
	StateActive State = iota
	// StateTerminating means a stop condition has been raised and the
	// loops are winding down.
	StateTerminating
	// StateClosed means both loops have exited and the socket is
	// closed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FetchPolicy decides, per state update, whether to request a screen
// dump from the game.
type FetchPolicy func(protocol.GameState) bool

// Session owns one accepted connection and the loop pair serving it.
type Session struct {
	// ID identifies the session in logs and frame-dump filenames.
	ID string

	// FetchPolicy may be replaced before Run.  The default fetches on
	// every state update, or never when image fetching is disabled.
	FetchPolicy FetchPolicy

	conn    net.Conn
	cfg     *config.Config
	decider decision.Decider
	logger  *util.Logger
	metrics *metrics.Collector

	store   *StateStore
	pending *PendingCommand

	phase     atomic.Int32
	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	writeMu   sync.Mutex // serializes command frames and image requests
	frameSeq  atomic.Uint64
}

// New wraps an accepted connection in a Session.  The connection is
// owned by the session from here on and closed when it finishes.
func New(conn net.Conn, cfg *config.Config, d decision.Decider, logger *util.Logger, m *metrics.Collector) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		conn:    conn,
		cfg:     cfg,
		decider: d,
		logger:  logger,
		metrics: m,
		store:   NewStateStore(),
		pending: &PendingCommand{},
		stop:    make(chan struct{}),
	}
	if cfg.FetchImages {
		s.FetchPolicy = func(protocol.GameState) bool { return true }
	} else {
		s.FetchPolicy = func(protocol.GameState) bool { return false }
	}
	return s
}

// Run drives the session to completion: it starts the receiver and
// sender loops, waits for both to exit, and closes the socket.  It
// returns when the session is Closed.
func (s *Session) Run(ctx context.Context) {
	s.metrics.SessionOpened()
	s.logger.Info("[%s] connected: %s", s.shortID(), remoteAddr(s.conn))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.recvLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.sendLoop(ctx)
	}()
	wg.Wait()

	s.close()
	s.logger.Info("[%s] connection closed", s.shortID())
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return State(s.phase.Load()) }

// Snapshot returns a copy of the latest game state.
func (s *Session) Snapshot() protocol.GameState { return s.store.Get() }

// terminate raises the session stop signal.  Safe to call from either
// loop; only the first call transitions Active → Terminating.
func (s *Session) terminate() {
	s.stopOnce.Do(func() {
		s.phase.CompareAndSwap(int32(StateActive), int32(StateTerminating))
		close(s.stop)
	})
}

// close shuts the socket exactly once and marks the session Closed.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close() //nolint:errcheck
		s.phase.Store(int32(StateClosed))
		s.metrics.SessionClosed()
	})
}

func (s *Session) stopped(ctx context.Context) bool {
	select {
	case <-s.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// ── Receiver loop ────────────────────────────────────────────────────

// recvLoop reads state frames, merges them into the snapshot, and —
// while the game is running — fetches a screen dump and asks the
// decider for the next command.  Reads are bounded so stop signals are
// observed within one ReadTimeout.
func (s *Session) recvLoop(ctx context.Context) {
	defer s.terminate() // any exit path also stops the sender

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	var acc []byte // partial-line accumulator
	for {
		if s.stopped(ctx) {
			return
		}

		s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)) //nolint:errcheck
		n, err := s.conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			var terminal bool
			acc, terminal = s.drainLines(ctx, acc)
			if terminal {
				return
			}
		}
		if err != nil {
			if aierr.IsTimeout(err) {
				continue // poll tick, re-check stop signals
			}
			if aierr.IsDisconnect(err) {
				s.logger.Verbose("[%s] peer closed the connection", s.shortID())
			} else {
				s.logger.Error("[%s] read: %v", s.shortID(), err)
				s.metrics.RecordError(err.Error())
			}
			return
		}
	}
}

// drainLines handles every complete line in acc and returns the
// unconsumed remainder, plus whether a terminal state was reached.
func (s *Session) drainLines(ctx context.Context, acc []byte) ([]byte, bool) {
	for {
		i := bytes.IndexByte(acc, '\n')
		if i < 0 {
			return acc, false
		}
		line := bytes.TrimSpace(acc[:i])
		acc = acc[i+1:]
		if len(line) == 0 {
			continue
		}
		if s.handleLine(line) {
			return acc, true
		}
		if s.stopped(ctx) {
			return acc, true
		}
	}
}

// handleLine decodes one state frame and reports whether it was
// terminal.  Malformed lines are skipped.
func (s *Session) handleLine(line []byte) bool {
	state, err := protocol.DecodeState(line)
	if err != nil {
		s.logger.Warn("[%s] %v", s.shortID(), err)
		s.metrics.DecodeErrorSkipped()
		return false
	}

	s.store.Set(state)
	s.metrics.StateReceived()
	s.logger.Verbose("[%s] %s", s.shortID(), state)

	if state.Terminal() {
		s.logger.Info("[%s] game ended or player is dead", s.shortID())
		return true
	}

	if s.FetchPolicy(state) {
		s.tick()
	}
	return false
}

// tick runs one fetch-and-decide cycle.  Every failure in here is
// local to the tick: the session keeps running.
func (s *Session) tick() {
	img, err := s.fetchImage()
	if err != nil {
		s.logger.Warn("[%s] image fetch: %v", s.shortID(), err)
		s.metrics.ImageFailed()
		return
	}
	s.metrics.ImageFetched()
	s.dumpFrame(img)

	cmd, err := s.decide(img)
	if err != nil {
		s.logger.Warn("[%s] decision: %v", s.shortID(), err)
		return
	}
	if cmd == "" {
		return
	}
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	if s.pending.Put(cmd) {
		s.metrics.CommandDropped()
		s.logger.Debug("[%s] pending command overwritten (%d dropped so far)",
			s.shortID(), s.pending.Drops())
	}
}

// fetchImage requests a screen dump and reads the framed reply.  The
// whole round trip shares one deadline.
func (s *Session) fetchImage() (image.Image, error) {
	s.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
	_, err := s.conn.Write([]byte(protocol.ImageRequest))
	s.writeMu.Unlock()
	if err != nil {
		return nil, &aierr.NetworkError{Op: "write", Addr: remoteAddr(s.conn), Err: err}
	}

	s.conn.SetReadDeadline(time.Now().Add(s.cfg.ImageTimeout)) //nolint:errcheck
	return protocol.ReadImage(s.conn, s.cfg.MaxImageBytes)
}

type decideResult struct {
	cmd string
	err error
}

// decide invokes the decider under its time budget.  An overrun, an
// error, or a panic all yield "no command this tick".
func (s *Session) decide(img image.Image) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DecisionBudget)
	defer cancel()

	ch := make(chan decideResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- decideResult{err: fmt.Errorf("decider panic: %v", r)}
			}
		}()
		cmd, err := s.decider.Decide(ctx, img, s.store.Get())
		ch <- decideResult{cmd: cmd, err: err}
	}()

	select {
	case res := <-ch:
		return res.cmd, res.err
	case <-ctx.Done():
		return "", aierr.ErrDecisionBudget
	}
}

// dumpFrame writes the fetched image as PNG when frame dumping is on.
func (s *Session) dumpFrame(img image.Image) {
	if s.cfg.DumpDir == "" {
		return
	}
	seq := s.frameSeq.Add(1)
	name := filepath.Join(s.cfg.DumpDir, fmt.Sprintf("%s-%06d.png", s.shortID(), seq))

	f, err := os.Create(name)
	if err != nil {
		s.logger.Warn("[%s] dump frame: %v", s.shortID(), err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		s.logger.Warn("[%s] dump frame: %v", s.shortID(), err)
	}
}

// ── Sender loop ──────────────────────────────────────────────────────

// sendLoop transmits the pending command every SendCadence.  It wakes
// every CadenceTick so a stop signal never waits out a full cadence
// sleep.
func (s *Session) sendLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CadenceTick)
	defer ticker.Stop()

	next := time.Now().Add(s.cfg.SendCadence)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.terminate()
			return
		case now := <-ticker.C:
			if now.Before(next) {
				continue
			}
			next = now.Add(s.cfg.SendCadence)

			state := s.store.Get() // diagnostics only; sending needs just the slot
			cmd, ok := s.pending.Take()
			if !ok {
				continue
			}
			if err := s.send(cmd); err != nil {
				if aierr.IsDisconnect(err) {
					s.logger.Verbose("[%s] send: peer gone", s.shortID())
				} else {
					s.logger.Error("[%s] %v", s.shortID(), err)
					s.metrics.RecordError(err.Error())
				}
				s.terminate()
				return
			}
			s.metrics.CommandSent()
			s.logger.Verbose("[%s] sent %q (players=%d)",
				s.shortID(), strings.TrimSuffix(cmd, "\n"), state.NumActivePlayers)
		}
	}
}

// send writes one command frame.
func (s *Session) send(cmd string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
	if _, err := s.conn.Write([]byte(cmd)); err != nil {
		return &aierr.NetworkError{Op: "write", Addr: remoteAddr(s.conn), Err: err}
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────

func (s *Session) shortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
