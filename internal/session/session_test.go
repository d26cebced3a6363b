package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aictl/config"
	"aictl/internal/decision"
	"aictl/internal/protocol"
	"aictl/util"
)

// testConfig shrinks every interval so the full loop pair runs in
// milliseconds.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Port = 9000
	cfg.ReadTimeout = 100 * time.Millisecond
	cfg.WriteTimeout = time.Second
	cfg.SendCadence = 50 * time.Millisecond
	cfg.CadenceTick = 10 * time.Millisecond
	cfg.ImageTimeout = 200 * time.Millisecond
	cfg.DecisionBudget = 40 * time.Millisecond
	return cfg
}

// dialPair returns both ends of a loopback TCP connection.
func dialPair(t *testing.T) (server, peer net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	peer, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	server, err = ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		server.Close()
		peer.Close()
	})
	return server, peer
}

func runAsync(ctx context.Context, s *Session) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return done
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("session did not finish in time")
	}
}

// fixedDecider always returns the same command.
func fixedDecider(cmd string) decision.Decider {
	return decision.Func(func(context.Context, image.Image, protocol.GameState) (string, error) {
		return cmd, nil
	})
}

func neverFetch(protocol.GameState) bool { return false }

// pngFrame builds a length-prefixed image frame holding a small PNG.
func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 4+buf.Len())
	binary.BigEndian.PutUint32(out, uint32(buf.Len()))
	copy(out[4:], buf.Bytes())
	return out
}

func readLine(t *testing.T, r *bufio.Reader, conn net.Conn, timeout time.Duration) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout)) //nolint:errcheck
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read line: %v", err)
	}
	return line
}

// ── Lifecycle ────────────────────────────────────────────────────────

func TestSession_LifecycleTransitions(t *testing.T) {
	server, _ := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)

	if s.State() != StateActive {
		t.Fatalf("fresh session state = %v, want active", s.State())
	}
	s.terminate()
	if s.State() != StateTerminating {
		t.Fatalf("after terminate state = %v, want terminating", s.State())
	}
	s.terminate() // idempotent
	s.close()
	if s.State() != StateClosed {
		t.Fatalf("after close state = %v, want closed", s.State())
	}
	s.close() // double close must not panic
}

// ── End-to-end state handling ────────────────────────────────────────

func TestSession_StateUpdateKeepsActive(t *testing.T) {
	server, peer := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	s.FetchPolicy = neverFetch
	done := runAsync(context.Background(), s)

	peer.Write([]byte(`{"isDead":false,"numActivePlayers":2,"hasWeapon":true,"numWeapons":1,"gameEnded":false}` + "\n"))

	waitFor(t, time.Second, "snapshot update", func() bool {
		return s.Snapshot().NumActivePlayers == 2
	})
	snap := s.Snapshot()
	if !snap.HasWeapon || snap.NumWeapons != 1 || snap.IsDead || snap.GameEnded {
		t.Errorf("snapshot = %+v", snap)
	}
	if s.State() != StateActive {
		t.Errorf("state = %v, want active", s.State())
	}

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSession_TerminalSuppressesImageFetch(t *testing.T) {
	server, peer := dialPair(t)
	// Default policy: fetch after every non-terminal update.
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	done := runAsync(context.Background(), s)

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)

	// The session closed its side; everything it ever wrote is
	// drainable.  A terminal frame must not trigger an image request.
	peer.SetReadDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	data, _ := io.ReadAll(peer)
	if strings.Contains(string(data), "GET_IMAGE") {
		t.Errorf("image requested after terminal state: %q", data)
	}
}

func TestSession_DeadPlayerTerminates(t *testing.T) {
	server, peer := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	s.FetchPolicy = neverFetch
	done := runAsync(context.Background(), s)

	peer.Write([]byte(`{"isDead":true}` + "\n"))
	waitDone(t, done)
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSession_MalformedLineSkipped(t *testing.T) {
	server, peer := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	s.FetchPolicy = neverFetch
	done := runAsync(context.Background(), s)

	peer.Write([]byte("this is not json\n"))
	peer.Write([]byte(`{"numActivePlayers":5}` + "\n"))

	waitFor(t, time.Second, "snapshot update past bad line", func() bool {
		return s.Snapshot().NumActivePlayers == 5
	})
	if s.State() != StateActive {
		t.Errorf("decode error should not terminate, state = %v", s.State())
	}

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)
}

// ── Image fetch and decision ─────────────────────────────────────────

func TestSession_ImageDecisionCommandFlow(t *testing.T) {
	server, peer := dialPair(t)
	s := New(server, testConfig(), fixedDecider("JUMP:1.00\n"), util.NewLogger(0), nil)
	done := runAsync(context.Background(), s)

	r := bufio.NewReader(peer)
	peer.Write([]byte(`{"numActivePlayers":2}` + "\n"))

	if got := readLine(t, r, peer, time.Second); got != protocol.ImageRequest {
		t.Fatalf("expected image request, got %q", got)
	}
	peer.Write(pngFrame(t))

	// The sender transmits the decision on its next cadence.
	if got := readLine(t, r, peer, 2*time.Second); got != "JUMP:1.00\n" {
		t.Fatalf("command = %q, want JUMP:1.00", got)
	}

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)
}

func TestSession_TruncatedImageIsRecoverable(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
	}{
		{"short length prefix", []byte{0x00, 0x01}},
		{"truncated payload", func() []byte {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], 100)
			return append(b[:], []byte("only ten b")...)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, peer := dialPair(t)
			s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
			done := runAsync(context.Background(), s)

			r := bufio.NewReader(peer)
			peer.Write([]byte(`{"numActivePlayers":1}` + "\n"))
			if got := readLine(t, r, peer, time.Second); got != protocol.ImageRequest {
				t.Fatalf("expected image request, got %q", got)
			}

			peer.Write(tt.reply)
			// Let the image deadline expire; the fetch aborts but the
			// session must survive.
			time.Sleep(300 * time.Millisecond)
			if s.State() != StateActive {
				t.Fatalf("state = %v after failed fetch, want active", s.State())
			}

			peer.Write([]byte(`{"gameEnded":true}` + "\n"))
			waitDone(t, done)
		})
	}
}

func TestSession_DeciderFailuresProduceNoCommand(t *testing.T) {
	tests := []struct {
		name    string
		decider decision.Decider
	}{
		{"panic", decision.Func(func(context.Context, image.Image, protocol.GameState) (string, error) {
			panic("analyzer exploded")
		})},
		{"over budget", decision.Func(func(ctx context.Context, _ image.Image, _ protocol.GameState) (string, error) {
			<-ctx.Done() // overruns its budget by design
			time.Sleep(50 * time.Millisecond)
			return "SHOOT\n", nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, peer := dialPair(t)
			s := New(server, testConfig(), tt.decider, util.NewLogger(0), nil)
			done := runAsync(context.Background(), s)

			r := bufio.NewReader(peer)
			peer.Write([]byte(`{"numActivePlayers":1}` + "\n"))
			if got := readLine(t, r, peer, time.Second); got != protocol.ImageRequest {
				t.Fatalf("expected image request, got %q", got)
			}
			peer.Write(pngFrame(t))

			// No command may arrive; the session must stay alive.
			peer.SetReadDeadline(time.Now().Add(300 * time.Millisecond)) //nolint:errcheck
			if line, err := r.ReadString('\n'); err == nil {
				t.Fatalf("unexpected command %q", line)
			}
			if s.State() != StateActive {
				t.Fatalf("state = %v, want active", s.State())
			}

			peer.Write([]byte(`{"gameEnded":true}` + "\n"))
			waitDone(t, done)
		})
	}
}

// ── Pending-command semantics on the wire ────────────────────────────

func TestSession_LossyLatestWinsTransmission(t *testing.T) {
	cfg := testConfig()
	cfg.SendCadence = 200 * time.Millisecond // room to overwrite first
	server, peer := dialPair(t)
	s := New(server, cfg, fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	s.FetchPolicy = neverFetch
	done := runAsync(context.Background(), s)

	s.pending.Put("LEFT:1.00\n")
	s.pending.Put("SHOOT\n")

	r := bufio.NewReader(peer)
	if got := readLine(t, r, peer, 2*time.Second); got != "SHOOT\n" {
		t.Fatalf("transmitted %q, want the latest value", got)
	}

	// Only one command was pending; nothing else may follow.
	peer.SetReadDeadline(time.Now().Add(300 * time.Millisecond)) //nolint:errcheck
	if line, err := r.ReadString('\n'); err == nil {
		t.Fatalf("unexpected extra command %q", line)
	}

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)
}

// ── Teardown paths ───────────────────────────────────────────────────

func TestSession_PeerCloseTerminates(t *testing.T) {
	server, peer := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	done := runAsync(context.Background(), s)

	peer.Close()
	waitDone(t, done)
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

func TestSession_ContextCancelTerminates(t *testing.T) {
	server, _ := dialPair(t)
	s := New(server, testConfig(), fixedDecider("SHOOT\n"), util.NewLogger(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	cancel()
	waitDone(t, done)
	if s.State() != StateClosed {
		t.Errorf("state = %v, want closed", s.State())
	}
}

// ── Frame dumping ────────────────────────────────────────────────────

func TestSession_DumpFrames(t *testing.T) {
	cfg := testConfig()
	cfg.DumpDir = t.TempDir()
	server, peer := dialPair(t)
	s := New(server, cfg, fixedDecider("SHOOT\n"), util.NewLogger(0), nil)
	done := runAsync(context.Background(), s)

	r := bufio.NewReader(peer)
	peer.Write([]byte(`{"numActivePlayers":1}` + "\n"))
	if got := readLine(t, r, peer, time.Second); got != protocol.ImageRequest {
		t.Fatalf("expected image request, got %q", got)
	}
	peer.Write(pngFrame(t))

	waitFor(t, time.Second, "dumped frame", func() bool {
		matches, _ := filepath.Glob(filepath.Join(cfg.DumpDir, "*.png"))
		return len(matches) == 1
	})

	// The dump must itself be a decodable PNG.
	matches, _ := filepath.Glob(filepath.Join(cfg.DumpDir, "*.png"))
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("dumped frame not decodable: %v", err)
	}

	peer.Write([]byte(`{"gameEnded":true}` + "\n"))
	waitDone(t, done)
}
