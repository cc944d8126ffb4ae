package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

const (
	// timeout duration for writing one frame.
	writeTimeout = 10 * time.Second

	// DefaultReadLimit bounds the size of one frame received from the relay.
	DefaultReadLimit = 1 << 20
)

// Conn wraps websocket.Conn with write timeouts and the frame helpers the
// file sender needs.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// Dial opens a relay connection to url. A non-empty token is sent as a bearer
// token so the session starts logged in.
func Dial(ctx context.Context, url, token string) (*Conn, error) {
	opts := &websocket.DialOptions{}
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + token}}
	}

	ws, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	ws.SetReadLimit(DefaultReadLimit)

	return &Conn{ws: ws, writeTimeout: writeTimeout}, nil
}

// WriteText sends one text frame.
func (c *Conn) WriteText(ctx context.Context, text string) error {
	return c.write(ctx, websocket.MessageText, []byte(text))
}

// WriteBinary sends one binary frame.
func (c *Conn) WriteBinary(ctx context.Context, data []byte) error {
	return c.write(ctx, websocket.MessageBinary, data)
}

func (c *Conn) write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.ws.Write(ctx, typ, data)
}

// Read returns the next frame from the relay.
func (c *Conn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	return c.ws.Read(ctx)
}

// Close performs the close handshake with a normal closure status.
func (c *Conn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}
