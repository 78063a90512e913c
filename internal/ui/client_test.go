package ui

import "testing"

func TestClientSendBufferFull(t *testing.T) {
	c := NewClient(nil, 2)

	if !c.Send([]byte("a")) {
		t.Fatal("first send should succeed")
	}
	if !c.Send([]byte("b")) {
		t.Fatal("second send should succeed")
	}
	if c.Send([]byte("c")) {
		t.Fatal("third send should drop (buffer full)")
	}
	if c.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", c.Dropped)
	}
}

func TestClientSendChDrains(t *testing.T) {
	c := NewClient(nil, 4)
	c.Send([]byte("x"))
	c.Send([]byte("y"))

	got := string(<-c.SendCh())
	if got != "x" {
		t.Fatalf("first drained = %q, want x", got)
	}
	got = string(<-c.SendCh())
	if got != "y" {
		t.Fatalf("second drained = %q, want y", got)
	}
}

func TestClientIDsUnique(t *testing.T) {
	a := NewClient(nil, 1)
	b := NewClient(nil, 1)
	if a.ID == b.ID {
		t.Fatal("client IDs must be unique")
	}
}
