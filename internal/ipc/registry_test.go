package ipc

import (
	"net"
	"testing"
)

func TestRegistry_AddAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		a, b := net.Pipe()
		defer a.Close()
		defer b.Close()

		c := r.Add(a)
		if c.ID == "" {
			t.Fatal("Add() returned empty id")
		}
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
		if c.State() != ConnOpen {
			t.Errorf("state = %v, want open", c.State())
		}
	}
	if r.Len() != 50 {
		t.Errorf("Len() = %d, want 50", r.Len())
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	a, b := net.Pipe()
	defer b.Close()

	c := r.Add(a)
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if !r.Remove(c.ID) {
		t.Fatal("Remove() = false for registered connection")
	}
	if r.Remove(c.ID) {
		t.Fatal("Remove() = true for already removed connection")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry()

	var conns []*Conn
	for i := 0; i < 3; i++ {
		a, b := net.Pipe()
		defer b.Close()
		conns = append(conns, r.Add(a))
	}

	r.CloseAll()

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	for _, c := range conns {
		if c.State() != ConnClosed {
			t.Errorf("conn %s state = %v, want closed", c.ID, c.State())
		}
		// Closing twice is harmless.
		if err := c.Close(); err != nil {
			t.Errorf("second Close() error: %v", err)
		}
	}
}
