// Package ipc implements the local command socket: the server the host
// listens on, the registry of live connections, and the client used by
// control surfaces to send one command per connection.
//
// The socket is unauthenticated. The file is created 0600 so only the
// owning user can connect, and any such process may issue any command.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/protocol"
)

// readBufferSize bounds a single message. One read is one command.
const readBufferSize = 1024

// Reply is a handler's answer to one command.
type Reply struct {
	// Line is written to the client followed by a newline.
	Line string

	// After, if set, runs once Line has been written. The host uses it to
	// shut down after acknowledging quit. It must not block on Stop.
	After func()
}

// Handler executes commands. Handle is only ever called from the server's
// single dispatcher goroutine, so implementations need no locking for
// state touched solely from Handle.
type Handler interface {
	Handle(ctx context.Context, cmd protocol.Command) Reply
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, cmd protocol.Command) Reply

// Handle calls f(ctx, cmd).
func (f HandlerFunc) Handle(ctx context.Context, cmd protocol.Command) Reply {
	return f(ctx, cmd)
}

type request struct {
	conn  *Conn
	cmd   protocol.Command
	reply chan Reply
}

// CommandSocketServer serves the command protocol on a Unix socket.
// It ensures the socket directory and file permissions are locked down.
type CommandSocketServer struct {
	// path is the filesystem location of the Unix socket.
	path string

	handler  Handler
	registry *Registry
	listener net.Listener
	requests chan request

	// cancel stops the dispatcher and fails pending dispatches.
	cancel context.CancelFunc
	done   <-chan struct{}

	logger *log.Logger

	// mu guards start/stop operations.
	mu sync.Mutex
}

// NewCommandSocketServer creates a command server for the given path.
// If logger is nil, logs are discarded.
func NewCommandSocketServer(path string, handler Handler, logger *log.Logger) *CommandSocketServer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CommandSocketServer{
		path:     path,
		handler:  handler,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Path returns the socket path.
func (s *CommandSocketServer) Path() string {
	return s.path
}

// Connections returns the number of registered connections.
func (s *CommandSocketServer) Connections() int {
	return s.registry.Len()
}

// Start begins listening on the configured Unix socket.
// It removes stale socket files, but fails if another process is active.
// A bind or listen failure is returned and never retried.
func (s *CommandSocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return apperrors.New(apperrors.CodeIPCAlreadyStarted, "command socket already started")
	}
	if s.path == "" {
		return apperrors.SocketPath("command socket path is empty")
	}
	if err := validateSocketPath(s.path); err != nil {
		return err
	}
	if s.handler == nil {
		return apperrors.Internal("command handler is nil", nil)
	}

	if err := s.prepareSocketDir(); err != nil {
		return err
	}

	if err := s.ensureSocketAvailable(); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return apperrors.ListenFailed(s.path, err)
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		listener.Close()
		_ = os.Remove(s.path)
		return apperrors.ListenFailed(s.path, fmt.Errorf("failed to set socket permissions: %w", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listener = listener
	s.cancel = cancel
	s.done = ctx.Done()
	s.requests = make(chan request)

	go s.dispatchLoop(ctx, s.requests)
	go s.acceptLoop(listener, s.requests, s.done)

	s.logger.Printf("listening on %s", s.path)
	return nil
}

// Stop shuts down the server, closes every connection, and removes the
// socket file.
func (s *CommandSocketServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.registry.CloseAll()

	var stopErr error
	if s.listener != nil && s.path != "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			stopErr = fmt.Errorf("failed to remove command socket: %w", err)
		}
	}

	s.listener = nil
	s.cancel = nil

	return stopErr
}

func (s *CommandSocketServer) acceptLoop(listener net.Listener, requests chan<- request, done <-chan struct{}) {
	for {
		nc, err := listener.Accept()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Printf("accept failed: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		conn := s.registry.Add(nc)
		go s.serveConn(conn, requests, done)
	}
}

// serveConn reads one message per readable event and waits for its reply
// before reading again, so a connection never has two commands in flight.
// The connection stays open after a reply; it ends on EOF, a read error,
// or server shutdown.
func (s *CommandSocketServer) serveConn(conn *Conn, requests chan<- request, done <-chan struct{}) {
	defer func() {
		s.registry.Remove(conn.ID)
		_ = conn.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			message := strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), "\uFFFD"))
			if cmd, ok := protocol.ParseCommand(message); ok {
				reply, ok := dispatch(conn, cmd, requests, done)
				if !ok {
					return
				}
				if _, werr := io.WriteString(conn, reply.Line+"\n"); werr != nil {
					s.logger.Printf("write to %s failed: %v", conn.ID, werr)
					return
				}
				if reply.After != nil {
					reply.After()
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Printf("read from %s failed: %v", conn.ID, err)
			}
			return
		}
	}
}

func dispatch(conn *Conn, cmd protocol.Command, requests chan<- request, done <-chan struct{}) (Reply, bool) {
	req := request{conn: conn, cmd: cmd, reply: make(chan Reply, 1)}
	select {
	case requests <- req:
	case <-done:
		return Reply{}, false
	}
	select {
	case reply := <-req.reply:
		return reply, true
	case <-done:
		return Reply{}, false
	}
}

// dispatchLoop is the single actor that executes commands from every
// connection in arrival order.
func (s *CommandSocketServer) dispatchLoop(ctx context.Context, requests <-chan request) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			req.reply <- s.handler.Handle(ctx, req.cmd)
		}
	}
}

func (s *CommandSocketServer) prepareSocketDir() error {
	dir := filepath.Dir(s.path)
	if dir == os.TempDir() || dir == "/tmp" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return apperrors.SocketPath(fmt.Sprintf("failed to create command socket directory: %v", err))
	}
	return nil
}

func (s *CommandSocketServer) ensureSocketAvailable() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.SocketPath(fmt.Sprintf("failed to stat command socket: %v", err))
	}

	if info.Mode()&os.ModeSocket == 0 {
		return apperrors.SocketPath(fmt.Sprintf("command socket path is not a socket: %s", s.path))
	}

	conn, err := net.DialTimeout("unix", s.path, 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return apperrors.SocketInUse(s.path)
	}
	if errors.Is(err, os.ErrPermission) {
		return apperrors.SocketPath(fmt.Sprintf("permission denied accessing command socket: %v", err))
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return apperrors.SocketPath(fmt.Sprintf("failed to remove stale command socket: %v", err))
	}

	return nil
}
