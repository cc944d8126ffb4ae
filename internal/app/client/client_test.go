package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaychat/internal/app/transfer"
	"relaychat/internal/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type frame struct {
	kind int
	data string
}

// recordingRelay accepts one connection and records every frame until the peer closes.
type recordingRelay struct {
	url    string
	mu     sync.Mutex
	frames []frame
	auth   string
	done   chan struct{}
}

func newRecordingRelay(t *testing.T) *recordingRelay {
	t.Helper()

	rr := &recordingRelay{done: make(chan struct{})}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(rr.done)

		rr.mu.Lock()
		rr.auth = r.Header.Get("Authorization")
		rr.mu.Unlock()

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			rr.mu.Lock()
			rr.frames = append(rr.frames, frame{kind: kind, data: string(data)})
			rr.mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)

	rr.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return rr
}

func (rr *recordingRelay) wait(t *testing.T) []frame {
	t.Helper()
	select {
	case <-rr.done:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not see the connection close")
	}
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return rr.frames
}

func TestRunSendsCommandsAndFiles(t *testing.T) {
	rr := newRecordingRelay(t)

	payload := bytes.Repeat([]byte("relay"), 500)
	path := filepath.Join(t.TempDir(), "note.txt")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, rr.url, "tok")
	require.NoError(t, err)

	out := &syncBuffer{}
	c := New(conn, t.TempDir(), out)

	input := strings.Join([]string{
		"login -u alice -p pw",
		"",
		"file -u bob " + path,
		"file -u bob " + filepath.Join(t.TempDir(), "missing.txt"),
		"file -u bob",
		"quit",
		"text -u bob never sent",
	}, "\n")

	require.NoError(t, c.Run(ctx, strings.NewReader(input)))

	frames := rr.wait(t)
	require.Len(t, frames, 6)

	assert.Equal(t, frame{websocket.TextMessage, "login -u alice -p pw"}, frames[0])
	assert.Equal(t, frame{websocket.TextMessage, "file -u bob note.txt"}, frames[1])

	var got []byte
	for _, f := range frames[2:5] {
		assert.Equal(t, websocket.BinaryMessage, f.kind)
		assert.LessOrEqual(t, len(f.data), transfer.ChunkSize)
		got = append(got, f.data...)
	}
	assert.Equal(t, payload, got)
	assert.Equal(t, frame{websocket.TextMessage, "EOF: note.txt"}, frames[5])

	rr.mu.Lock()
	assert.Equal(t, "Bearer tok", rr.auth)
	rr.mu.Unlock()

	assert.Contains(t, out.String(), "File transfer aborted")
	assert.Contains(t, out.String(), "Invalid message format")
}

func TestRunReceivesFilesAndMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte("Login Successful"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("from bob: hi"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("Filename: ../../a.txt"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("hello "))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("world"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("EOF"))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), "")
	require.NoError(t, err)

	downloads := t.TempDir()
	out := &syncBuffer{}
	c := New(conn, downloads, out)

	in, stdin := io.Pipe()
	t.Cleanup(func() { _ = stdin.Close() })

	require.NoError(t, c.Run(ctx, in))

	saved, err := os.ReadFile(filepath.Join(downloads, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(saved))

	printed := out.String()
	assert.Contains(t, printed, "Message received: Login Successful")
	assert.Contains(t, printed, "Message received: from bob: hi")
	assert.Contains(t, printed, "Starting file reception: ../../a.txt")
	assert.Contains(t, printed, "Connection closed by the relay.")
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), "")
	assert.Error(t, err)
}
