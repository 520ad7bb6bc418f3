package ipc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	apperrors "github.com/xlg/player/internal/errors"
)

// DefaultRequestTimeout bounds one command round trip.
const DefaultRequestTimeout = time.Second

// Client sends commands to a command socket. Every command uses a fresh
// connection; nothing is reused between calls.
type Client struct {
	path    string
	timeout time.Duration
}

// NewClient creates a client for the socket at path. A non-positive
// timeout uses DefaultRequestTimeout.
func NewClient(path string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{path: path, timeout: timeout}
}

// Send delivers command and returns the trimmed response, or "" on any
// transport error or a timeout with no data.
func (c *Client) Send(ctx context.Context, command string) string {
	resp, _ := c.Do(ctx, command)
	return resp
}

// Do delivers command and reads the response until the first newline, the
// peer closing, or the request timeout, whichever comes first. The
// connection is then closed.
//
// The server keeps connections open, so a peer that does not terminate its
// response with a newline is only delimited by the timeout. Bytes received
// before the timeout are returned as the full response with a nil error.
func (c *Client) Do(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return "", apperrors.NotRunning(c.path, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, command); err != nil {
		return "", apperrors.ConnectionLost(err)
	}

	var buf bytes.Buffer
	chunk := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if i := bytes.IndexByte(buf.Bytes(), '\n'); i >= 0 {
				return strings.TrimSpace(string(buf.Bytes()[:i])), nil
			}
		}
		if err == nil {
			continue
		}

		resp := strings.TrimSpace(buf.String())
		if errors.Is(err, io.EOF) {
			return resp, nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if resp != "" {
				return resp, nil
			}
			return "", apperrors.RequestTimedOut(command, err)
		}
		return "", apperrors.ConnectionLost(err)
	}
}
