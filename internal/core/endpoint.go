package core

import (
	"context"
	"sync"
)

// DefaultQueueSize is used when an Outbox is built with a non-positive size.
const DefaultQueueSize = 64

// Endpoint is a non-owning handle to one client's outbound stream.
// Deliver must not block.
type Endpoint interface {
	ID() string
	Deliver(line string) error
}

// Outbox is the Endpoint owned by a session. Lines are queued here and
// written to the connection by the session's writer goroutine.
//
// The queue channel is never closed so concurrent deliveries cannot panic;
// Close only signals done.
type Outbox struct {
	id    string
	queue chan string

	done      chan struct{}
	closeOnce sync.Once
}

// NewOutbox constructs an outbox with a bounded queue.
func NewOutbox(id string, size int) *Outbox {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Outbox{
		id:    id,
		queue: make(chan string, size),
		done:  make(chan struct{}),
	}
}

// ID returns the identifier the registry keys this endpoint by.
func (o *Outbox) ID() string {
	return o.id
}

// Deliver enqueues a line without blocking. It fails with ErrQueueFull when
// the consumer is behind and ErrEndpointClosed after Close.
func (o *Outbox) Deliver(line string) error {
	select {
	case <-o.done:
		return ErrEndpointClosed
	default:
	}

	select {
	case o.queue <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

// Send enqueues a line, waiting for room in the queue. Sessions use it for
// replies to themselves so their own feedback is never dropped.
func (o *Outbox) Send(ctx context.Context, line string) error {
	select {
	case <-o.done:
		return ErrEndpointClosed
	default:
	}

	select {
	case o.queue <- line:
		return nil
	case <-o.done:
		return ErrEndpointClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queue exposes pending lines to the writer.
func (o *Outbox) Queue() <-chan string {
	return o.queue
}

// Done is closed once the outbox stops accepting lines.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Close stops accepting new lines (idempotent).
func (o *Outbox) Close() {
	o.closeOnce.Do(func() {
		close(o.done)
	})
}

// Pending reports how many lines wait in the queue.
func (o *Outbox) Pending() int {
	return len(o.queue)
}
