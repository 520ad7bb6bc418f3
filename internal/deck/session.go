// Package deck is the control-surface plugin: it connects to the Stream Deck
// host over a local websocket, turns key presses into command-socket
// commands, and mirrors player status onto the toggle keys.
//
// Failures never reach the user. A dropped connection is redialed after a
// fixed delay, an unreachable player leaves the keys as they were.
package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	apperrors "github.com/xlg/player/internal/errors"
	"github.com/xlg/player/internal/protocol"
)

// Defaults for Config fields left at zero.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultReconnectDelay = time.Second

	writeWait   = 10 * time.Second
	sendBufSize = 64
)

// Sender delivers one command to the player and returns its response line.
// An empty response means the player could not be reached.
type Sender interface {
	Send(ctx context.Context, command string) string
}

// Config configures a Session.
type Config struct {
	// Port is the UI host's websocket port on 127.0.0.1.
	Port int

	// PluginUUID and RegisterEvent are handed to the plugin on launch and
	// echoed back in the registration message.
	PluginUUID    string
	RegisterEvent string

	// PollInterval is the status poll period. Zero uses DefaultPollInterval.
	PollInterval time.Duration

	// ReconnectDelay is the wait before redialing. Zero uses
	// DefaultReconnectDelay.
	ReconnectDelay time.Duration

	// Dialer opens the websocket. Nil uses websocket.DefaultDialer.
	Dialer *websocket.Dialer

	// Logger receives session logs. Nil discards them.
	Logger *log.Logger
}

// Session is one plugin instance. It owns the key context registry, which
// outlives individual connections.
type Session struct {
	cfg      Config
	url      string
	sender   Sender
	registry *ContextRegistry
	logger   *log.Logger
	backoff  backoff.BackOff

	// sends tracks in-flight key press commands.
	sends sync.WaitGroup
}

// NewSession creates a session that forwards commands through sender.
func NewSession(cfg Config, sender Sender) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		cfg:      cfg,
		url:      fmt.Sprintf("ws://127.0.0.1:%d", cfg.Port),
		sender:   sender,
		registry: NewContextRegistry(),
		logger:   logger,
		backoff:  backoff.NewConstantBackOff(cfg.ReconnectDelay),
	}
}

// Registry returns the session's context registry.
func (s *Session) Registry() *ContextRegistry {
	return s.registry
}

// URL returns the websocket address the session dials.
func (s *Session) URL() string {
	return s.url
}

// errDisconnected ends a connect attempt whose connection was served and
// then dropped, so the retry loop redials it.
var errDisconnected = errors.New("control surface disconnected")

// Run connects and serves until ctx is cancelled, redialing after every
// disconnect or failed dial. It returns once in-flight commands finish.
func (s *Session) Run(ctx context.Context) error {
	defer s.sends.Wait()

	connect := func() error {
		conn, _, err := s.cfg.Dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			return apperrors.DeckDialFailed(s.url, err)
		}
		s.logger.Printf("connected to %s", s.url)
		s.serve(ctx, conn)
		return errDisconnected
	}
	notify := func(err error, wait time.Duration) {
		if ctx.Err() == nil {
			s.logger.Printf("%v; retrying in %s", err, wait)
		}
	}

	// connect never succeeds, so this only returns once ctx is done.
	_ = backoff.RetryNotify(connect, backoff.WithContext(s.backoff, ctx), notify)
	return nil
}

// serve runs one connection: registration, poller and event loop. It
// returns when the connection drops or ctx is cancelled; the poller and
// write pump stop with it.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	c := &connection{
		conn:   conn,
		send:   make(chan interface{}, sendBufSize),
		done:   connCtx.Done(),
		cancel: cancel,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writePump(s.logger)
	}()
	defer func() {
		cancel()
		conn.Close()
		wg.Wait()
	}()

	// Unblocks ReadMessage when the session is cancelled.
	stop := context.AfterFunc(connCtx, func() { conn.Close() })
	defer stop()

	c.enqueue(registration{Event: s.cfg.RegisterEvent, UUID: s.cfg.PluginUUID})

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pollLoop(connCtx, c)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) && ctx.Err() == nil {
				s.logger.Printf("read error: %v", err)
			}
			return
		}
		s.handleEvent(connCtx, data)
	}
}

func (s *Session) handleEvent(ctx context.Context, data []byte) {
	ev, err := ParseEvent(data)
	if err != nil {
		return
	}

	switch ev.Event {
	case EventWillAppear:
		if ev.Context == "" || ev.Action == "" {
			return
		}
		s.registry.Bind(ev.Context, ev.Action)
	case EventWillDisappear:
		if ev.Context == "" {
			return
		}
		s.registry.Unbind(ev.Context)
	case EventKeyDown:
		if ev.Context == "" || ev.Action == "" {
			return
		}
		action, ok := s.registry.Action(ev.Context)
		if !ok {
			return
		}
		command, ok := protocol.CommandForAction(action)
		if !ok {
			return
		}
		s.sends.Add(1)
		go func() {
			defer s.sends.Done()
			s.sender.Send(context.WithoutCancel(ctx), command)
		}()
	}
}

func (s *Session) pollLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx, c)
		}
	}
}

// poll fetches status once and pushes it to every toggle key. An empty or
// malformed response leaves the keys unchanged.
func (s *Session) poll(ctx context.Context, c *connection) {
	resp := s.sender.Send(ctx, protocol.VerbStatus)
	if resp == "" {
		return
	}
	status, err := protocol.ParseStatus(resp)
	if err != nil {
		return
	}

	title := ""
	if status.Title != "" {
		title = protocol.TruncateTitle(status.Title)
	}
	s.registry.Each(protocol.ActionID(protocol.ActionToggle), func(key string) {
		c.enqueue(setState(key, status.Playing))
		if title != "" {
			c.enqueue(setTitle(key, title))
		}
	})
}

// connection serializes writes to one websocket.
type connection struct {
	conn   *websocket.Conn
	send   chan interface{}
	done   <-chan struct{}
	cancel context.CancelFunc
}

// enqueue queues msg for the write pump. It drops msg once the
// connection is shutting down.
func (c *connection) enqueue(msg interface{}) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *connection) writePump(logger *log.Logger) {
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Printf("marshal %T: %v", msg, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Printf("write error: %v", err)
				c.cancel()
				return
			}
		}
	}
}
