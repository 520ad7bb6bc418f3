package ipc

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/protocol"
)

func okHandler() Handler {
	return HandlerFunc(func(ctx context.Context, cmd protocol.Command) Reply {
		return Reply{Line: protocol.ResponseOK}
	})
}

func TestCommandSocketServer_StartStop(t *testing.T) {
	path := tempSocketPath(t)
	server := NewCommandSocketServer(path, okHandler(), nil)

	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("socket permissions = %o, want 0600", info.Mode().Perm())
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("socket path should be removed, stat error: %v", err)
	}
}

func TestCommandSocketServer_StartTwice(t *testing.T) {
	server := startServer(t, okHandler())

	err := server.Start()
	if !apperrors.IsCode(err, apperrors.CodeIPCAlreadyStarted) {
		t.Fatalf("second Start() error = %v, want %s", err, apperrors.CodeIPCAlreadyStarted)
	}
}

func TestCommandSocketServer_EmptyPath(t *testing.T) {
	server := NewCommandSocketServer("", okHandler(), nil)
	err := server.Start()
	if !apperrors.IsCode(err, apperrors.CodeIPCSocketPath) {
		t.Fatalf("Start() error = %v, want %s", err, apperrors.CodeIPCSocketPath)
	}
}

func TestCommandSocketServer_StaleSocketCleanup(t *testing.T) {
	path := tempSocketPath(t)

	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	// Keep the socket file on close so it looks stale.
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	if err := listener.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected stale socket file, got stat error: %v", err)
	}

	server := NewCommandSocketServer(path, okHandler(), nil)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer server.Stop()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		t.Fatalf("socket path is not a socket")
	}
}

func TestCommandSocketServer_AlreadyRunning(t *testing.T) {
	path := tempSocketPath(t)

	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer listener.Close()

	server := NewCommandSocketServer(path, okHandler(), nil)
	if err := server.Start(); err == nil {
		_ = server.Stop()
		t.Fatal("Start() expected error for already running socket")
	} else if !apperrors.IsCode(err, apperrors.CodeIPCSocketInUse) {
		t.Fatalf("Start() error = %v, want %s", err, apperrors.CodeIPCSocketInUse)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("socket should remain, stat error: %v", err)
	}
}

func TestCommandSocketServer_NotASocket(t *testing.T) {
	path := tempSocketPath(t)
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	server := NewCommandSocketServer(path, okHandler(), nil)
	err := server.Start()
	if !apperrors.IsCode(err, apperrors.CodeIPCSocketPath) {
		t.Fatalf("Start() error = %v, want %s", err, apperrors.CodeIPCSocketPath)
	}
}

func TestCommandSocketServer_KeepsConnectionOpen(t *testing.T) {
	var seen []string
	var mu sync.Mutex
	server := startServer(t, HandlerFunc(func(ctx context.Context, cmd protocol.Command) Reply {
		mu.Lock()
		seen = append(seen, cmd.String())
		mu.Unlock()
		return Reply{Line: "reply:" + cmd.Key()}
	}))

	conn := dialServer(t, server.Path())
	reader := bufio.NewReader(conn)

	for _, command := range []string{"STATUS", "  pause  ", "volume +5"} {
		if _, err := conn.Write([]byte(command)); err != nil {
			t.Fatalf("Write(%q) error: %v", command, err)
		}
		line := readLine(t, conn, reader)
		want := "reply:" + strings.ToLower(strings.Fields(command)[0])
		if line != want {
			t.Errorf("response to %q = %q, want %q", command, line, want)
		}
	}

	if got := server.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1 after replies", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(seen, ",") != "STATUS,pause,volume +5" {
		t.Errorf("handled commands = %v", seen)
	}
}

func TestCommandSocketServer_EmptyMessageNoResponse(t *testing.T) {
	var calls atomic.Int32
	server := startServer(t, HandlerFunc(func(ctx context.Context, cmd protocol.Command) Reply {
		calls.Add(1)
		return Reply{Line: protocol.ResponseOK}
	}))

	conn := dialServer(t, server.Path())
	if _, err := conn.Write([]byte("   \n\t")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil {
		t.Fatalf("expected no response to empty message, got %q", buf[:n])
	}
	_ = conn.SetReadDeadline(time.Time{})

	if calls.Load() != 0 {
		t.Fatalf("handler called %d times for empty message", calls.Load())
	}

	// The connection survives and accepts the next command.
	if _, err := conn.Write([]byte("pause")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if line := readLine(t, conn, bufio.NewReader(conn)); line != protocol.ResponseOK {
		t.Fatalf("response = %q, want OK", line)
	}
}

func TestCommandSocketServer_PeerCloseUnregisters(t *testing.T) {
	server := startServer(t, okHandler())

	conn := dialServer(t, server.Path())
	if _, err := conn.Write([]byte("pause")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	readLine(t, conn, bufio.NewReader(conn))

	if got := server.Connections(); got != 1 {
		t.Fatalf("Connections() = %d, want 1", got)
	}

	conn.Close()
	waitFor(t, func() bool { return server.Connections() == 0 })
}

func TestCommandSocketServer_StopClosesConnections(t *testing.T) {
	path := tempSocketPath(t)
	server := NewCommandSocketServer(path, okHandler(), nil)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	conn := dialServer(t, path)
	waitFor(t, func() bool { return server.Connections() == 1 })

	if err := server.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected connection to be closed by Stop")
	}
	if got := server.Connections(); got != 0 {
		t.Errorf("Connections() = %d, want 0", got)
	}
}

func TestCommandSocketServer_SingleDispatcher(t *testing.T) {
	var active, maxActive atomic.Int32
	server := startServer(t, HandlerFunc(func(ctx context.Context, cmd protocol.Command) Reply {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return Reply{Line: protocol.ResponseOK}
	}))

	client := NewClient(server.Path(), 2*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp, err := client.Do(context.Background(), "pause"); err != nil || resp != protocol.ResponseOK {
				t.Errorf("Do() = (%q, %v), want OK", resp, err)
			}
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent handler calls = %d, want 1", got)
	}
}

func TestCommandSocketServer_AfterRunsOnceReplyWritten(t *testing.T) {
	after := make(chan struct{})
	server := startServer(t, HandlerFunc(func(ctx context.Context, cmd protocol.Command) Reply {
		if cmd.Key() == protocol.VerbQuit {
			return Reply{Line: protocol.ResponseOK, After: func() { close(after) }}
		}
		return Reply{Line: protocol.ResponseOK}
	}))

	resp, err := NewClient(server.Path(), time.Second).Do(context.Background(), "quit")
	if err != nil || resp != protocol.ResponseOK {
		t.Fatalf("Do(quit) = (%q, %v), want OK", resp, err)
	}

	select {
	case <-after:
	case <-time.After(time.Second):
		t.Fatal("After hook did not run")
	}
}

func startServer(t *testing.T, handler Handler) *CommandSocketServer {
	t.Helper()

	server := NewCommandSocketServer(tempSocketPath(t), handler, nil)
	if err := server.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func dialServer(t *testing.T, path string) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLine(t *testing.T, conn net.Conn, reader *bufio.Reader) string {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString() error: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func tempSocketPath(t *testing.T) string {
	baseDir, err := os.MkdirTemp("/tmp", "xlg-ipc-")
	if err != nil {
		baseDir = t.TempDir()
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(baseDir)
	})
	return filepath.Join(baseDir, "player.sock")
}
