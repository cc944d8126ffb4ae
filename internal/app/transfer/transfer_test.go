package transfer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type frame struct {
	text bool
	data []byte
}

type recordingWriter struct {
	frames  []frame
	failAt  int
	written int
}

func (w *recordingWriter) write(f frame) error {
	w.written++
	if w.failAt > 0 && w.written == w.failAt {
		return errors.New("connection reset")
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *recordingWriter) WriteText(_ context.Context, text string) error {
	return w.write(frame{text: true, data: []byte(text)})
}

func (w *recordingWriter) WriteBinary(_ context.Context, data []byte) error {
	return w.write(frame{data: append([]byte(nil), data...)})
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestSendChunksFile(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 300) // 2400 bytes
	path := writeTemp(t, "notes.txt", data)

	w := &recordingWriter{}
	sent, err := Send(context.Background(), w, "bob", path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), sent)

	require.Len(t, w.frames, 5)
	assert.Equal(t, frame{text: true, data: []byte("file -u bob notes.txt")}, w.frames[0])
	assert.Len(t, w.frames[1].data, ChunkSize)
	assert.Len(t, w.frames[2].data, ChunkSize)
	assert.Len(t, w.frames[3].data, len(data)-2*ChunkSize)
	assert.Equal(t, frame{text: true, data: []byte("EOF: notes.txt")}, w.frames[4])

	var joined []byte
	for _, f := range w.frames[1:4] {
		assert.False(t, f.text)
		joined = append(joined, f.data...)
	}
	assert.Equal(t, data, joined)
}

func TestSendEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty", nil)

	w := &recordingWriter{}
	_, err := Send(context.Background(), w, "bob", path)
	require.NoError(t, err)
	require.Len(t, w.frames, 2)
}

func TestSendMissingFile(t *testing.T) {
	w := &recordingWriter{}
	_, err := Send(context.Background(), w, "bob", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Empty(t, w.frames)
}

func TestSendAbortsOnWriteError(t *testing.T) {
	path := writeTemp(t, "big", bytes.Repeat([]byte{1}, 3*ChunkSize))

	w := &recordingWriter{failAt: 3}
	sent, err := Send(context.Background(), w, "bob", path)
	assert.Error(t, err)
	assert.Equal(t, int64(ChunkSize), sent)
	assert.Len(t, w.frames, 2, "nothing is sent after the failure")
}

func TestReceiverAssemblesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir)

	writes := 0
	r.writeFile = func(name string, data []byte, perm os.FileMode) error {
		writes++
		return os.WriteFile(name, data, perm)
	}

	ev, err := r.Handle([]byte("Filename: a.txt"))
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventStarted, Name: "a.txt"}, ev)
	assert.True(t, r.Active())

	ev, err = r.Handle([]byte("first "))
	require.NoError(t, err)
	assert.Equal(t, EventChunk, ev.Kind)

	_, err = r.Handle([]byte("second"))
	require.NoError(t, err)

	ev, err = r.Handle([]byte("EOF"))
	require.NoError(t, err)
	assert.Equal(t, EventSaved, ev.Kind)
	assert.Equal(t, filepath.Join(dir, "a.txt"), ev.Path)
	assert.False(t, r.Active())
	assert.Equal(t, 1, writes)

	got, err := os.ReadFile(ev.Path)
	require.NoError(t, err)
	assert.Equal(t, "first second", string(got))

	// A second end marker is just a message now.
	ev, err = r.Handle([]byte("EOF"))
	require.NoError(t, err)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, 1, writes)
}

func TestReceiverUntaggedBinaryIsMessage(t *testing.T) {
	r := NewReceiver(t.TempDir())

	ev, err := r.Handle([]byte("from alice: hi"))
	require.NoError(t, err)
	assert.Equal(t, Event{Kind: EventMessage, Text: "from alice: hi"}, ev)

	ev, err = r.Handle([]byte{0xff, 0xfe})
	require.NoError(t, err)
	assert.Equal(t, "<Invalid UTF-8>", ev.Text)
}

func TestReceiverStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	r := NewReceiver(dir)

	_, err := r.Handle([]byte("Filename: ../../etc/passwd"))
	require.NoError(t, err)
	_, err = r.Handle([]byte("x"))
	require.NoError(t, err)

	ev, err := r.Handle([]byte("EOF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "passwd"), ev.Path)
}

func TestReceiverRejectsUnusableName(t *testing.T) {
	r := NewReceiver(t.TempDir())

	_, err := r.Handle([]byte("Filename: .."))
	require.NoError(t, err)

	_, err = r.Handle([]byte("EOF"))
	assert.Error(t, err)
	assert.False(t, r.Active())
}

func TestReceiverReassemblesChunksInOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chunks := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 1, ChunkSize), 0, 16).Draw(t, "chunks")

		dir, err := os.MkdirTemp("", "receiver")
		if err != nil {
			t.Fatalf("tempdir: %v", err)
		}
		defer os.RemoveAll(dir)

		var saved []byte
		writes := 0
		r := NewReceiver(dir)
		r.writeFile = func(_ string, data []byte, _ os.FileMode) error {
			writes++
			saved = append([]byte(nil), data...)
			return nil
		}

		if _, err := r.Handle([]byte("Filename: f.bin")); err != nil {
			t.Fatalf("announce: %v", err)
		}

		var want []byte
		for _, c := range chunks {
			// A chunk that happens to look like a marker would be ambiguous on the wire.
			if bytes.HasPrefix(c, []byte(announcePrefix)) || string(c) == endMarker {
				continue
			}
			if _, err := r.Handle(c); err != nil {
				t.Fatalf("chunk: %v", err)
			}
			want = append(want, c...)
		}

		if _, err := r.Handle([]byte("EOF")); err != nil {
			t.Fatalf("eof: %v", err)
		}
		if writes != 1 {
			t.Fatalf("file written %d times", writes)
		}
		if !bytes.Equal(saved, want) {
			t.Fatalf("saved %d bytes, want %d", len(saved), len(want))
		}
	})
}
