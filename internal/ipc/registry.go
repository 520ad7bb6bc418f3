package ipc

import (
	"net"
	"sync"

	"github.com/google/uuid"
)

// ConnState is the lifecycle state of a registered connection.
type ConnState int

const (
	// ConnOpen means the connection is registered and readable.
	ConnOpen ConnState = iota
	// ConnClosed means the connection was torn down and released.
	ConnClosed
)

func (s ConnState) String() string {
	if s == ConnClosed {
		return "closed"
	}
	return "open"
}

// Conn is a server-side client connection owned by the registry.
type Conn struct {
	// ID uniquely identifies the connection for its lifetime.
	ID string

	net.Conn

	mu        sync.Mutex
	state     ConnState
	closeOnce sync.Once
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close transitions the connection to Closed and closes the transport.
// Subsequent calls are no-ops.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = ConnClosed
		c.mu.Unlock()
		err = c.Conn.Close()
	})
	return err
}

// Registry tracks live connections by id. It never holds two entries for
// the same id.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// Add registers nc under a fresh id and returns the owned connection.
func (r *Registry) Add(nc net.Conn) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := r.conns[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	c := &Conn{ID: id, Conn: nc, state: ConnOpen}
	r.conns[id] = c
	return c
}

// Remove unregisters the connection with the given id.
// Returns false if it was not registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes and unregisters every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.conns))
	for id, c := range r.conns {
		conns = append(conns, c)
		delete(r.conns, id)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
