package chat

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrOutboxClosed is returned by Send after the owning session has ended.
	ErrOutboxClosed = errors.New("outbox closed")

	// ErrOutboxFull is returned by Send when a bounded outbox is at its limit.
	ErrOutboxFull = errors.New("outbox full")
)

// Outbox is a session's outbound notification queue.
// Any goroutine may Send; only the owning session drains it.
// A zero limit means the queue is unbounded.
//
// While a Transfer is open, plain sends are held back and appended to the
// queue when the transfer ends, so a file stream reaches the consumer
// without foreign messages between its frames.
type Outbox struct {
	mu        sync.Mutex
	queue     [][]byte
	held      [][]byte
	streaming bool
	closed    bool
	limit     int

	// ready holds at most one pending wake-up for the consumer.
	ready chan struct{}
	// slot is taken by the single open Transfer.
	slot chan struct{}
	// done is closed by Close.
	done chan struct{}
}

// NewOutbox creates an Outbox holding at most limit messages (0 for no limit).
func NewOutbox(limit int) *Outbox {
	if limit < 0 {
		limit = 0
	}
	return &Outbox{
		limit: limit,
		ready: make(chan struct{}, 1),
		slot:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send enqueues a copy of msg. It never blocks.
// During a transfer the message is held until the transfer ends.
func (o *Outbox) Send(msg []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	if o.limit > 0 && len(o.queue)+len(o.held) >= o.limit {
		o.mu.Unlock()
		return ErrOutboxFull
	}
	cp := append([]byte(nil), msg...)
	if o.streaming {
		o.held = append(o.held, cp)
		o.mu.Unlock()
		return nil
	}
	o.queue = append(o.queue, cp)
	o.mu.Unlock()

	o.signal()
	return nil
}

func (o *Outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// BeginTransfer opens an exclusive stream into the outbox.
// It waits while another transfer is open and fails with ErrOutboxClosed
// once the outbox is closed. The caller must End the returned Transfer.
func (o *Outbox) BeginTransfer(ctx context.Context) (*Transfer, error) {
	select {
	case o.slot <- struct{}{}:
	case <-o.done:
		return nil, ErrOutboxClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		<-o.slot
		return nil, ErrOutboxClosed
	}
	o.streaming = true
	return &Transfer{o: o}, nil
}

// Transfer is an open stream into an Outbox. Its sends bypass the hold on
// plain sends and count only against messages already queued.
type Transfer struct {
	o    *Outbox
	once sync.Once
}

// Send enqueues a copy of msg ahead of any held messages.
func (t *Transfer) Send(msg []byte) error {
	o := t.o
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrOutboxClosed
	}
	if o.limit > 0 && len(o.queue) >= o.limit {
		o.mu.Unlock()
		return ErrOutboxFull
	}
	o.queue = append(o.queue, append([]byte(nil), msg...))
	o.mu.Unlock()

	o.signal()
	return nil
}

// End releases the held messages behind the stream and lets the next
// transfer begin. Calling End more than once has no further effect.
func (t *Transfer) End() {
	t.once.Do(func() {
		o := t.o
		o.mu.Lock()
		o.streaming = false
		released := len(o.held) > 0
		o.queue = append(o.queue, o.held...)
		o.held = nil
		o.mu.Unlock()

		if released {
			o.signal()
		}
		<-o.slot
	})
}

// Ready is signalled whenever messages may be waiting.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Drain removes and returns every queued message in enqueue order.
func (o *Outbox) Drain() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := o.queue
	o.queue = nil
	return msgs
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Close rejects further sends and discards anything still queued.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		close(o.done)
	}
	o.closed = true
	o.queue = nil
	o.held = nil
}
