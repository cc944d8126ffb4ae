package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxOrderAndReady(t *testing.T) {
	o := NewOutbox(0)

	require.NoError(t, o.Send([]byte("one")))
	require.NoError(t, o.Send([]byte("two")))

	select {
	case <-o.Ready():
	default:
		t.Fatal("ready not signalled")
	}

	msgs := o.Drain()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", string(msgs[0]))
	assert.Equal(t, "two", string(msgs[1]))
	assert.Equal(t, 0, o.Len())
}

func TestOutboxCopiesMessage(t *testing.T) {
	o := NewOutbox(0)
	buf := []byte("abc")
	require.NoError(t, o.Send(buf))
	buf[0] = 'x'

	assert.Equal(t, "abc", string(o.Drain()[0]))
}

func TestOutboxLimit(t *testing.T) {
	o := NewOutbox(2)
	require.NoError(t, o.Send([]byte("a")))
	require.NoError(t, o.Send([]byte("b")))
	assert.ErrorIs(t, o.Send([]byte("c")), ErrOutboxFull)

	o.Drain()
	assert.NoError(t, o.Send([]byte("c")))
}

func TestOutboxClosed(t *testing.T) {
	o := NewOutbox(0)
	require.NoError(t, o.Send([]byte("a")))
	o.Close()

	assert.ErrorIs(t, o.Send([]byte("b")), ErrOutboxClosed)
	assert.Empty(t, o.Drain())
}

func TestOutboxConcurrentProducers(t *testing.T) {
	o := NewOutbox(0)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = o.Send([]byte("x"))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, o.Drain(), 800)
}

func TestTransferHoldsPlainSends(t *testing.T) {
	o := NewOutbox(0)
	require.NoError(t, o.Send([]byte("before")))

	tr, err := o.BeginTransfer(context.Background())
	require.NoError(t, err)

	require.NoError(t, tr.Send([]byte("chunk1")))
	require.NoError(t, o.Send([]byte("other")))
	require.NoError(t, tr.Send([]byte("chunk2")))

	assert.Equal(t, []string{"before", "chunk1", "chunk2"}, drainStrings(o))

	tr.End()
	tr.End()
	assert.Equal(t, []string{"other"}, drainStrings(o))

	require.NoError(t, o.Send([]byte("after")))
	assert.Equal(t, []string{"after"}, drainStrings(o))
}

func TestTransferLimit(t *testing.T) {
	o := NewOutbox(2)
	tr, err := o.BeginTransfer(context.Background())
	require.NoError(t, err)
	defer tr.End()

	require.NoError(t, tr.Send([]byte("chunk")))
	require.NoError(t, o.Send([]byte("held")))
	assert.ErrorIs(t, o.Send([]byte("dropped")), ErrOutboxFull)

	// Held messages do not count against the stream.
	require.NoError(t, tr.Send([]byte("chunk")))
	assert.ErrorIs(t, tr.Send([]byte("chunk")), ErrOutboxFull)
}

func TestTransferIsExclusive(t *testing.T) {
	o := NewOutbox(0)
	first, err := o.BeginTransfer(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = o.BeginTransfer(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan error, 1)
	go func() {
		second, err := o.BeginTransfer(context.Background())
		if err == nil {
			second.End()
		}
		got <- err
	}()

	first.End()
	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second transfer never began")
	}
}

func TestOutboxCloseReleasesTransferWaiter(t *testing.T) {
	o := NewOutbox(0)
	tr, err := o.BeginTransfer(context.Background())
	require.NoError(t, err)

	got := make(chan error, 1)
	go func() {
		_, err := o.BeginTransfer(context.Background())
		got <- err
	}()

	o.Close()
	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrOutboxClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not released by Close")
	}

	assert.ErrorIs(t, tr.Send([]byte("chunk")), ErrOutboxClosed)
	tr.End()
	assert.Equal(t, 0, o.Len())

	_, err = o.BeginTransfer(context.Background())
	assert.ErrorIs(t, err, ErrOutboxClosed)
}

func drainStrings(o *Outbox) []string {
	var out []string
	for _, msg := range o.Drain() {
		out = append(out, string(msg))
	}
	return out
}
