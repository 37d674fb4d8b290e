package core

import (
	"testing"
	"time"
)

// mustLine waits for the next queued line on o and fails if none arrives.
func mustLine(t *testing.T, o *Outbox) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case line := <-o.Queue():
			return line
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected a line on %s, got none", o.ID())
	return ""
}

// mustBeQuiet fails if o has anything queued.
func mustBeQuiet(t *testing.T, o *Outbox) {
	t.Helper()

	if n := o.Pending(); n != 0 {
		t.Fatalf("expected no lines on %s, got %d (first %q)", o.ID(), n, <-o.Queue())
	}
}

// failingEndpoint always rejects delivery.
type failingEndpoint struct {
	id  string
	err error
}

func (f failingEndpoint) ID() string           { return f.id }
func (f failingEndpoint) Deliver(string) error { return f.err }
